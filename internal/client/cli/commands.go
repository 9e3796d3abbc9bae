package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/client/client"
)

func (a *App) fail(err error) {
	fmt.Fprintln(a.out, "Error:", err)
}

func (a *App) printRequest(r *client.Request) {
	fmt.Fprintf(a.out, "[%s] %s (%s, %d votes)\n", r.ID, r.Title, r.Status, r.Votes)
	if r.Description != "" {
		fmt.Fprintln(a.out, r.Description)
	}
}

func (a *App) password() (string, bool) {
	pw, err := GetPassword(a.out)
	if err != nil {
		a.fail(err)
		return "", false
	}
	return string(pw), true
}

func (a *App) register(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	pw, ok := a.password()
	if !ok {
		return
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if _, err := a.api.Register(cctx, name, email, pw); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "Registered. Check your email for the verification token.")
}

func (a *App) verify(ctx context.Context, token string) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.VerifyEmail(cctx, token); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "Email verified")
}

func (a *App) resend(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.ResendVerification(cctx, email); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "Verification email sent")
}

func (a *App) forgot(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.RequestPasswordReset(cctx, email); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "If the account exists, a reset token has been sent")
}

func (a *App) reset(ctx context.Context, token string) {
	pw, ok := a.password()
	if !ok {
		return
	}
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.ResetPassword(cctx, token, pw); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "Password changed, please log in")
}

func (a *App) login(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	pw, ok := a.password()
	if !ok {
		return
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.Login(cctx, email, pw); err != nil {
		a.fail(err)
		return
	}
	a.userName = email
	fmt.Fprintln(a.out, "Logged in")
}

func (a *App) create(ctx context.Context) {
	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	desc, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		a.fail(err)
		return
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	r, err := a.api.CreateRequest(cctx, title, desc)
	if err != nil {
		a.fail(err)
		return
	}
	a.printRequest(r)
}

func (a *App) show(ctx context.Context, id string) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	r, err := a.api.GetRequest(cctx, id)
	if err != nil {
		a.fail(err)
		return
	}
	a.printRequest(r)
}

func (a *App) edit(ctx context.Context, id string) {
	title, err := GetSimpleText(a.reader, "New title", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	desc, err := GetMultiline(a.reader, "New description", a.out)
	if err != nil {
		a.fail(err)
		return
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	r, err := a.api.EditRequest(cctx, id, title, desc)
	if err != nil {
		a.fail(err)
		return
	}
	a.printRequest(r)
}

func (a *App) delete(ctx context.Context, id string) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.DeleteRequest(cctx, id); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.out, "Deleted", id)
}

func (a *App) vote(ctx context.Context, id string) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	action, err := a.api.ToggleVote(cctx, id)
	if err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintf(a.out, "Vote %s\n", action)
}

func (a *App) status(ctx context.Context, id, status string) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.UpdateStatus(cctx, id, status); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintf(a.out, "Status of %s set to %s\n", id, status)
}

func (a *App) deleteAccount(ctx context.Context) {
	confirm, err := GetSimpleText(a.reader, "Type DELETE to remove your account", a.out)
	if err != nil {
		a.fail(err)
		return
	}
	if confirm != "DELETE" {
		fmt.Fprintln(a.out, "Cancelled")
		return
	}
	pw, ok := a.password()
	if !ok {
		return
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.api.DeleteAccount(cctx, pw); err != nil {
		a.fail(err)
		return
	}
	a.userName = ""
	fmt.Fprintln(a.out, "Account deleted")
}
