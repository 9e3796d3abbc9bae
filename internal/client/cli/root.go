package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

func (a *App) getStatus() string {
	if a.userName == "" || !a.api.IsLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

func (a *App) help() {
	if a.api.IsLoggedIn() {
		fmt.Fprintln(a.out, "Available commands: create, show <id>, edit <id>, delete <id>, vote <id>, status <id> <STATUS>, delete-account, logout, exit")
	} else {
		fmt.Fprintln(a.out, "Available commands: register, verify <token>, resend, forgot, reset <token>, login, exit")
	}
}

func (a *App) Root(ctx context.Context) {

	fmt.Fprintln(a.out, "Welcome to the feature board CLI (type 'help' for commands)")

	for {
		fmt.Fprintf(a.out, "fb %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			break
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(a.out, "Bye!")
			return
		}
		a.dispatch(ctx, cmd, args)
	}

}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) {
	needsID := func(usage string) (string, bool) {
		if len(args) == 0 {
			fmt.Fprintln(a.out, "Usage:", usage)
			return "", false
		}
		return args[0], true
	}

	switch cmd {
	case "help":
		a.help()
	case "register":
		a.register(ctx)
	case "verify":
		if token, ok := needsID("verify <token>"); ok {
			a.verify(ctx, token)
		}
	case "resend":
		a.resend(ctx)
	case "forgot":
		a.forgot(ctx)
	case "reset":
		if token, ok := needsID("reset <token>"); ok {
			a.reset(ctx, token)
		}
	case "login":
		a.login(ctx)
	case "logout":
		a.api.Logout()
		a.userName = ""
		fmt.Fprintln(a.out, "Logged out")
	case "create":
		a.create(ctx)
	case "show":
		if id, ok := needsID("show <id>"); ok {
			a.show(ctx, id)
		}
	case "edit":
		if id, ok := needsID("edit <id>"); ok {
			a.edit(ctx, id)
		}
	case "delete":
		if id, ok := needsID("delete <id>"); ok {
			a.delete(ctx, id)
		}
	case "vote":
		if id, ok := needsID("vote <id>"); ok {
			a.vote(ctx, id)
		}
	case "status":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: status <id> <STATUS>")
			return
		}
		a.status(ctx, args[0], strings.ToUpper(args[1]))
	case "delete-account":
		a.deleteAccount(ctx)
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
	}
}
