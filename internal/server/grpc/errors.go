package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/server/ratelimit"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error onto a gRPC status. Store failures are
// checked first so a wrapped business sentinel never hides them.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	var limited *ratelimit.Error

	switch {
	case errors.Is(err, common.ErrTransactionFailure):
		s.logger.Error(ctx, "transaction failure", "method", method, "error", err)
		return status.Error(codes.Aborted, common.ErrTransactionFailure.Error())
	case errors.Is(err, common.ErrInfrastructure):
		s.logger.Error(ctx, "store unavailable", "method", method, "error", err)
		return status.Error(codes.Unavailable, common.ErrInfrastructure.Error())
	case errors.As(err, &limited):
		return status.Error(codes.ResourceExhausted, limited.Decision.Message)
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrNotOwner), errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrHasVotes), errors.Is(err, common.ErrSelfVote):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrInvalidStatus), errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrEmailDelivery):
		// the account itself is kept; the client may ask for a resend
		return status.Error(codes.Unavailable, common.ErrEmailDelivery.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		s.logger.Warn(ctx, "unclassified error", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
