// Package logmail is a development mail sink that writes messages to the log
// instead of delivering them.
package logmail

import (
	"context"
	"log/slog"
)

type Mailer struct {
	logger *slog.Logger
}

func NewMailer(logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{logger: logger}
}

// SendEmail logs the envelope at info and the body at debug.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not delivered (log provider)", "to", to, "subject", subject)
	m.logger.DebugContext(ctx, "mail body", "to", to, "body", body)
	return nil
}
