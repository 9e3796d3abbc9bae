// Package mailer defines how the server hands off verification and password
// reset emails. Delivery itself is an external concern.
package mailer

import (
	"context"

	"github.com/dmitrijs2005/featureboard/internal/logging"
)

type Sender interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// LogSender writes outgoing mail to the log instead of delivering it. Tokens
// are logged at debug level only.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("module", "mailer")}
}

func (s *LogSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	s.log.Info(ctx, "verification email queued", "email", email)
	s.log.Debug(ctx, "verification token", "email", email, "token", token)
	return nil
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	s.log.Info(ctx, "password reset email queued", "email", email)
	s.log.Debug(ctx, "password reset token", "email", email, "token", token)
	return nil
}
