package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/server/auth"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const actorKey ctxKey = "actor"

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !isPublic(info.FullMethod) {

		accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		actor, err := auth.ActorFromToken(accessToken, s.jwtSecret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, actorKey, actor)

	}

	return handler(ctx, req)
}

func isPublic(fullMethod string) bool {
	return publicMethods[fullMethod] || strings.HasPrefix(fullMethod, "/"+healthpb.Health_ServiceDesc.ServiceName+"/")
}

// currentActor returns the identity the interceptor resolved for this call.
func currentActor(ctx context.Context) (models.Actor, error) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	if !ok || actor.ID == "" {
		return models.Actor{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return actor, nil
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
