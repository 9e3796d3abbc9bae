package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

/*************
 * Fake board server
 *************/

type handlerFunc func(token string, in *structpb.Struct) (map[string]any, error)

type fakeBoard struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []string
	tokens   []string
}

func (f *fakeBoard) handle(srv any, stream grpc.ServerStream) error {
	full, _ := grpc.MethodFromServerStream(stream)
	method := full[strings.LastIndex(full, "/")+1:]

	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	var token string
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
			token = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.tokens = append(f.tokens, token)
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		return status.Error(codes.Unimplemented, method)
	}
	fields, err := h(token, in)
	if err != nil {
		return err
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	return stream.SendMsg(out)
}

func newTestClient(t *testing.T, handlers map[string]handlerFunc) (*GRPCClient, *fakeBoard) {
	t.Helper()

	board := &fakeBoard{handlers: handlers}
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(board.handle))
	go func() { _ = srv.Serve(lis) }()

	c, err := NewFeatureBoardClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
	})
	return c, board
}

func tokensFor(access, refresh string) handlerFunc {
	return func(string, *structpb.Struct) (map[string]any, error) {
		return map[string]any{"access_token": access, "refresh_token": refresh}, nil
	}
}

func TestLogin_StoresTokensAndSendsAccessToken(t *testing.T) {
	c, board := newTestClient(t, map[string]handlerFunc{
		"Login": tokensFor("A1", "R1"),
		"ToggleVote": func(token string, in *structpb.Struct) (map[string]any, error) {
			assert.Equal(t, "r1", in.GetFields()["request_id"].GetStringValue())
			return map[string]any{"action": "added"}, nil
		},
	})
	ctx := context.Background()

	require.False(t, c.IsLoggedIn())
	require.NoError(t, c.Login(ctx, "a@example.com", "pw"))
	require.True(t, c.IsLoggedIn())

	action, err := c.ToggleVote(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "added", action)

	assert.Equal(t, []string{"Login", "ToggleVote"}, board.calls)
	assert.Equal(t, []string{"", "A1"}, board.tokens)
}

func TestInterceptor_RefreshesExpiredTokenOnce(t *testing.T) {
	c, board := newTestClient(t, map[string]handlerFunc{
		"Login": tokensFor("old", "R1"),
		"RefreshToken": func(_ string, in *structpb.Struct) (map[string]any, error) {
			if in.GetFields()["refresh_token"].GetStringValue() != "R1" {
				return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
			}
			return map[string]any{"access_token": "new", "refresh_token": "R2"}, nil
		},
		"GetRequest": func(token string, in *structpb.Struct) (map[string]any, error) {
			if token != "new" {
				return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
			}
			return map[string]any{"id": "r1", "title": "Dark mode", "status": "PENDING", "owner_id": "o", "votes": 3}, nil
		},
	})
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "a@example.com", "pw"))

	r, err := c.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, &Request{ID: "r1", Title: "Dark mode", Status: "PENDING", OwnerID: "o", Votes: 3}, r)

	assert.Equal(t, []string{"Login", "GetRequest", "RefreshToken", "GetRequest"}, board.calls)
	assert.Equal(t, "R2", c.refreshToken)
}

func TestInterceptor_OtherUnauthenticatedIsNotRetried(t *testing.T) {
	c, board := newTestClient(t, map[string]handlerFunc{
		"Login": tokensFor("A1", "R1"),
		"DeleteAccount": func(string, *structpb.Struct) (map[string]any, error) {
			return nil, status.Error(codes.Unauthenticated, common.ErrWrongPassword.Error())
		},
	})
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "a@example.com", "pw"))

	err := c.DeleteAccount(ctx, "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "wrong password")
	assert.Equal(t, []string{"Login", "DeleteAccount"}, board.calls)
	assert.True(t, c.IsLoggedIn())
}

func TestDeleteAccount_ForgetsSession(t *testing.T) {
	c, _ := newTestClient(t, map[string]handlerFunc{
		"Login": tokensFor("A1", "R1"),
		"DeleteAccount": func(string, *structpb.Struct) (map[string]any, error) {
			return map[string]any{"status": "deleted"}, nil
		},
	})
	ctx := context.Background()

	require.ErrorIs(t, c.DeleteAccount(ctx, "pw"), ErrNotLoggedIn)

	require.NoError(t, c.Login(ctx, "a@example.com", "pw"))
	require.NoError(t, c.DeleteAccount(ctx, "pw"))
	assert.False(t, c.IsLoggedIn())
}

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "x"), ErrUnauthorized},
		{"unavailable", status.Error(codes.Unavailable, "x"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ErrUnavailable},
		{"rate limited", status.Error(codes.ResourceExhausted, "x"), ErrRateLimited},
		{"self vote", status.Error(codes.FailedPrecondition, "x"), ErrRejected},
		{"not owner", status.Error(codes.PermissionDenied, "x"), ErrRejected},
		{"aborted", status.Error(codes.Aborted, "x"), ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, c.mapError(tt.err), tt.want)
		})
	}

	assert.NoError(t, c.mapError(nil))

	internal := c.mapError(status.Error(codes.Internal, "boom"))
	for _, s := range []error{ErrUnauthorized, ErrUnavailable, ErrRateLimited, ErrRejected} {
		assert.False(t, errors.Is(internal, s))
	}
}

func TestRateLimitedMessageIsKept(t *testing.T) {
	msg := "Too many login attempts. Please try again in 15 minutes."
	c, _ := newTestClient(t, map[string]handlerFunc{
		"Login": func(string, *structpb.Struct) (map[string]any, error) {
			return nil, status.Error(codes.ResourceExhausted, msg)
		},
	})

	err := c.Login(context.Background(), "a@example.com", "pw")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), msg)
	assert.False(t, c.IsLoggedIn())
}
