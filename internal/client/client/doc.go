// Package client is the gRPC client of the feature board.
//
// GRPCClient keeps the session tokens returned by Login, attaches the access
// token to every call through a unary interceptor and, when the server
// answers that the token has expired, rotates the pair with the refresh token
// and retries the call once.
//
// Transport failures are mapped to sentinel errors (ErrUnavailable,
// ErrUnauthorized, ErrRateLimited, ErrRejected) so callers can match them with
// errors.Is; the server's message is kept in the wrapped error text.
package client
