// Package common defines shared constants and sentinel errors used across
// the feature board server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("validation error")

	// Feature request guard and vote engine outcomes.
	ErrNotOwner      = errors.New("not the owner of the request")
	ErrHasVotes      = errors.New("request already has votes")
	ErrSelfVote      = errors.New("cannot vote on own request")
	ErrInvalidStatus = errors.New("invalid status")

	// Account and login outcomes.
	ErrWrongPassword = errors.New("wrong password")
	ErrRateLimited   = errors.New("rate limited")

	// Outbound email could not be handed to the mail transport.
	ErrEmailDelivery = errors.New("email delivery failed")

	// Store failures. These are the only kinds logged as unexpected.
	ErrTransactionFailure = errors.New("transaction failure")
	ErrInfrastructure     = errors.New("infrastructure error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
