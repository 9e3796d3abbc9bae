// Package grpc exposes the feature board over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Login(ctx context.Context, email, password, addr string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type RequestService interface {
	Create(ctx context.Context, ownerID, title, description string) (*models.FeatureRequest, error)
	Get(ctx context.Context, requestID string) (*models.FeatureRequest, int, error)
	AuthorizeEdit(ctx context.Context, actorID, requestID string) error
	AuthorizeDelete(ctx context.Context, actorID, requestID string) error
	Edit(ctx context.Context, actorID, requestID, title, description string) (*models.FeatureRequest, error)
	Delete(ctx context.Context, actorID, requestID string) error
	UpdateStatus(ctx context.Context, actor models.Actor, requestID, status string) error
}

type VoteService interface {
	ToggleVote(ctx context.Context, voterID, requestID string) (models.VoteAction, error)
}

type AccountService interface {
	DeleteAccount(ctx context.Context, userID, password string) error
}

type GRPCServer struct {
	address   string
	users     UserService
	requests  RequestService
	votes     VoteService
	accounts  AccountService
	logger    logging.Logger
	jwtSecret []byte

	// trustProxy makes clientAddress honor x-forwarded-for.
	trustProxy bool
}

func NewGRPCServer(a string, l logging.Logger, us UserService, rs RequestService, vs VoteService, as AccountService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		requests:  rs,
		votes:     vs,
		accounts:  as,
		jwtSecret: []byte(secretKey),
	}
}

// WithTrustedProxy controls whether the client address used for login rate
// limiting is taken from x-forwarded-for. Leave it off unless every request
// arrives through a proxy that sets the header itself.
func (s *GRPCServer) WithTrustedProxy(trust bool) *GRPCServer {
	s.trustProxy = trust
	return s
}

// newServer builds the grpc.Server with the interceptor, the board service
// and the standard health service.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv.RegisterService(&featureBoardServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
