package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "featureboard.v1.FeatureBoard"

// Request is a feature request as shown to the user.
type Request struct {
	ID          string
	Title       string
	Description string
	Status      string
	OwnerID     string
	Votes       int
}

type GRPCClient struct {
	endpointURL  string
	conn         *grpc.ClientConn
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)

	if err != nil {

		st, ok := status.FromError(err)
		if !ok {
			return err
		}

		if st.Code() != codes.Unauthenticated {
			return err
		}
		if st.Message() != common.ErrTokenExpired.Error() {
			return err
		}

		if s.refreshToken == "" {
			return err
		}

		if err := s.refresh(ctx); err != nil {
			return err
		}

		// tokens refreshed, retry with the new access token
		ctx = withAccessToken(ctx, s.accessToken)
		return invoker(ctx, method, req, reply, cc, opts...)

	}

	return err
}

func NewFeatureBoardClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out); err != nil {
		return nil, s.mapError(err)
	}
	return out, nil
}

func (s *GRPCClient) refresh(ctx context.Context) error {
	in, err := structpb.NewStruct(map[string]any{"refresh_token": s.refreshToken})
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, "/"+serviceName+"/RefreshToken", in, out); err != nil {
		return err
	}
	s.setTokens(out)
	return nil
}

func (s *GRPCClient) setTokens(out *structpb.Struct) {
	s.accessToken = str(out, "access_token")
	s.refreshToken = str(out, "refresh_token")
}

func str(out *structpb.Struct, name string) string {
	return out.GetFields()[name].GetStringValue()
}

func toRequest(out *structpb.Struct) *Request {
	return &Request{
		ID:          str(out, "id"),
		Title:       str(out, "title"),
		Description: str(out, "description"),
		Status:      str(out, "status"),
		OwnerID:     str(out, "owner_id"),
		Votes:       int(out.GetFields()["votes"].GetNumberValue()),
	}
}

func (s *GRPCClient) IsLoggedIn() bool {
	return s.accessToken != ""
}

// Logout forgets the session tokens.
func (s *GRPCClient) Logout() {
	s.accessToken = ""
	s.refreshToken = ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	_, err := s.call(ctx, "Ping", nil)
	return err
}

func (s *GRPCClient) Register(ctx context.Context, name, email, password string) (string, error) {
	out, err := s.call(ctx, "Register", map[string]any{"name": name, "email": email, "password": password})
	if err != nil {
		return "", err
	}
	return str(out, "id"), nil
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) error {
	_, err := s.call(ctx, "VerifyEmail", map[string]any{"token": token})
	return err
}

func (s *GRPCClient) ResendVerification(ctx context.Context, email string) error {
	_, err := s.call(ctx, "ResendVerification", map[string]any{"email": email})
	return err
}

func (s *GRPCClient) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := s.call(ctx, "RequestPasswordReset", map[string]any{"email": email})
	return err
}

func (s *GRPCClient) ResetPassword(ctx context.Context, token, password string) error {
	_, err := s.call(ctx, "ResetPassword", map[string]any{"token": token, "password": password})
	return err
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) error {
	out, err := s.call(ctx, "Login", map[string]any{"email": email, "password": password})
	if err != nil {
		return err
	}
	s.setTokens(out)
	return nil
}

func (s *GRPCClient) CreateRequest(ctx context.Context, title, description string) (*Request, error) {
	out, err := s.call(ctx, "CreateRequest", map[string]any{"title": title, "description": description})
	if err != nil {
		return nil, err
	}
	return toRequest(out), nil
}

func (s *GRPCClient) GetRequest(ctx context.Context, id string) (*Request, error) {
	out, err := s.call(ctx, "GetRequest", map[string]any{"request_id": id})
	if err != nil {
		return nil, err
	}
	return toRequest(out), nil
}

func (s *GRPCClient) EditRequest(ctx context.Context, id, title, description string) (*Request, error) {
	out, err := s.call(ctx, "EditRequest", map[string]any{"request_id": id, "title": title, "description": description})
	if err != nil {
		return nil, err
	}
	return toRequest(out), nil
}

func (s *GRPCClient) DeleteRequest(ctx context.Context, id string) error {
	_, err := s.call(ctx, "DeleteRequest", map[string]any{"request_id": id})
	return err
}

func (s *GRPCClient) UpdateStatus(ctx context.Context, id, newStatus string) error {
	_, err := s.call(ctx, "UpdateStatus", map[string]any{"request_id": id, "status": newStatus})
	return err
}

// ToggleVote returns "added" or "removed".
func (s *GRPCClient) ToggleVote(ctx context.Context, id string) (string, error) {
	out, err := s.call(ctx, "ToggleVote", map[string]any{"request_id": id})
	if err != nil {
		return "", err
	}
	return str(out, "action"), nil
}

// DeleteAccount deletes the logged-in account and forgets the session.
func (s *GRPCClient) DeleteAccount(ctx context.Context, password string) error {
	if !s.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := s.call(ctx, "DeleteAccount", map[string]any{"password": password}); err != nil {
		return err
	}
	s.Logout()
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRateLimited, st.Message())
	case codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition,
		codes.InvalidArgument, codes.AlreadyExists, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
