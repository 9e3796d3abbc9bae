package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// stringField returns the named string field of in, or "" when absent.
func stringField(in *structpb.Struct, name string) string {
	if v, ok := in.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func requireFields(in *structpb.Struct, names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(stringField(in, n)) == "" {
			return status.Errorf(codes.InvalidArgument, "missing field %q", n)
		}
	}
	return nil
}

func response(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func requestFields(r *models.FeatureRequest, votes int) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"title":       r.Title,
		"description": r.Description,
		"status":      string(r.Status),
		"owner_id":    r.OwnerID,
		"votes":       votes,
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// clientAddress returns the transport peer, or the address forwarded by a
// trusted proxy when one is configured. Callers can set the header freely,
// so it is ignored otherwise.
func (s *GRPCServer) clientAddress(ctx context.Context) string {
	if s.trustProxy {
		if fwd := firstMetadata(ctx, common.PeerAddressHeaderName); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}
	return ""
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return response(map[string]any{"status": "OK"})

}

// Register expects name, email and password; it returns the new user id.
func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	s.logger.Info(ctx, "Registration request")

	user, err := s.users.Register(ctx, stringField(req, "name"), stringField(req, "email"), stringField(req, "password"))
	if err != nil {
		return nil, s.toStatus(ctx, "Register", err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return response(map[string]any{"id": user.ID})

}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := requireFields(req, "token"); err != nil {
		return nil, err
	}
	if err := s.users.VerifyEmail(ctx, stringField(req, "token")); err != nil {
		return nil, s.toStatus(ctx, "VerifyEmail", err)
	}
	return response(map[string]any{"status": "verified"})

}

func (s *GRPCServer) ResendVerification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := s.users.ResendVerification(ctx, stringField(req, "email")); err != nil {
		return nil, s.toStatus(ctx, "ResendVerification", err)
	}
	return response(map[string]any{"status": "sent"})

}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := s.users.RequestPasswordReset(ctx, stringField(req, "email")); err != nil {
		return nil, s.toStatus(ctx, "RequestPasswordReset", err)
	}
	return response(map[string]any{"status": "sent"})

}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := requireFields(req, "token"); err != nil {
		return nil, err
	}
	if err := s.users.ResetPassword(ctx, stringField(req, "token"), stringField(req, "password")); err != nil {
		return nil, s.toStatus(ctx, "ResetPassword", err)
	}
	return response(map[string]any{"status": "reset"})

}

// Login expects email and password and returns an access/refresh pair.
func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	tokens, err := s.users.Login(ctx, stringField(req, "email"), stringField(req, "password"), s.clientAddress(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "Login", err)
	}

	return response(map[string]any{"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken})

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := requireFields(req, "refresh_token"); err != nil {
		return nil, err
	}

	tokens, err := s.users.RefreshToken(ctx, stringField(req, "refresh_token"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
		}
		return nil, s.toStatus(ctx, "RefreshToken", err)
	}

	return response(map[string]any{"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken})

}

func (s *GRPCServer) CreateRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.requests.Create(ctx, actor.ID, stringField(req, "title"), stringField(req, "description"))
	if err != nil {
		return nil, s.toStatus(ctx, "CreateRequest", err)
	}
	return response(requestFields(r, 0))

}

func (s *GRPCServer) GetRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	r, votes, err := s.requests.Get(ctx, stringField(req, "request_id"))
	if err != nil {
		return nil, s.toStatus(ctx, "GetRequest", err)
	}
	return response(requestFields(r, votes))

}

// AuthorizeEdit answers whether the caller may edit the request right now.
func (s *GRPCServer) AuthorizeEdit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return s.authorize(ctx, req, "AuthorizeEdit", s.requests.AuthorizeEdit)

}

func (s *GRPCServer) AuthorizeDelete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return s.authorize(ctx, req, "AuthorizeDelete", s.requests.AuthorizeDelete)

}

func (s *GRPCServer) authorize(ctx context.Context, req *structpb.Struct, method string, check func(ctx context.Context, actorID, requestID string) error) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	if err := check(ctx, actor.ID, stringField(req, "request_id")); err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	return response(map[string]any{"allowed": true})

}

func (s *GRPCServer) EditRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	r, err := s.requests.Edit(ctx, actor.ID, stringField(req, "request_id"), stringField(req, "title"), stringField(req, "description"))
	if err != nil {
		return nil, s.toStatus(ctx, "EditRequest", err)
	}
	// an editable request has no votes
	return response(requestFields(r, 0))

}

func (s *GRPCServer) DeleteRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	if err := s.requests.Delete(ctx, actor.ID, stringField(req, "request_id")); err != nil {
		return nil, s.toStatus(ctx, "DeleteRequest", err)
	}
	return response(map[string]any{"status": "deleted"})

}

func (s *GRPCServer) UpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	if err := s.requests.UpdateStatus(ctx, actor, stringField(req, "request_id"), stringField(req, "status")); err != nil {
		return nil, s.toStatus(ctx, "UpdateStatus", err)
	}
	return response(map[string]any{"status": stringField(req, "status")})

}

// ToggleVote flips the caller's vote on request_id and reports "added" or
// "removed".
func (s *GRPCServer) ToggleVote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "request_id"); err != nil {
		return nil, err
	}

	action, err := s.votes.ToggleVote(ctx, actor.ID, stringField(req, "request_id"))
	if err != nil {
		return nil, s.toStatus(ctx, "ToggleVote", err)
	}
	return response(map[string]any{"action": string(action)})

}

// DeleteAccount removes the caller's account after re-checking the password.
func (s *GRPCServer) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.DeleteAccount(ctx, actor.ID, stringField(req, "password")); err != nil {
		return nil, s.toStatus(ctx, "DeleteAccount", err)
	}
	return response(map[string]any{"status": "deleted"})

}
