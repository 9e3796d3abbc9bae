package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
)

// businessErrors are expected outcomes returned to the caller as is.
var businessErrors = []error{
	common.ErrorNotFound,
	common.ErrAlreadyExists,
	common.ErrorUnauthorized,
	common.ErrForbidden,
	common.ErrValidation,
	common.ErrNotOwner,
	common.ErrHasVotes,
	common.ErrSelfVote,
	common.ErrInvalidStatus,
	common.ErrWrongPassword,
	common.ErrRateLimited,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrRefreshTokenExpired,
}

func isBusiness(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storeError classifies an error from a read outside a transaction.
func storeError(err error) error {
	if err == nil || isBusiness(err) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrInfrastructure, err)
}

// txError classifies the error returned by dbx.WithTx. Business outcomes
// raised inside the unit of work pass through; a failed BEGIN means the
// store is unreachable; anything else aborted the transaction.
func txError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dbx.ErrBegin):
		return fmt.Errorf("%w: %w", common.ErrInfrastructure, err)
	case isBusiness(err) && !errors.Is(err, dbx.ErrCommit):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrTransactionFailure, err)
	}
}

// logUnexpected logs err at error level only when it is a store failure.
func logUnexpected(ctx context.Context, log logging.Logger, msg string, err error, args ...any) {
	if errors.Is(err, common.ErrTransactionFailure) || errors.Is(err, common.ErrInfrastructure) {
		log.Error(ctx, msg, append(args, "error", err)...)
	}
}
