// Package cli provides the interactive feature board command-line client.
//
// It wires configuration and the gRPC client into a small REPL: register and
// verify an account, log in, file feature requests, vote on them and, for the
// owner, edit or delete them while nobody has voted yet. Admins can change a
// request's status. Passwords are read from the terminal without echo.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
