package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrRejected     = errors.New("rejected")
	ErrNotLoggedIn  = errors.New("not logged in")
)
