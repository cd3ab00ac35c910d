package smtp

import (
	"context"
	"fmt"

	"github.com/go-wallet-otp/internal/config"
	"github.com/go-wallet-otp/internal/pkg/id"
	gomail "gopkg.in/mail.v2"
)

// Mailer sends plain-text emails through an SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	host   string
}

// NewMailer builds a Mailer from the SMTP settings. The dial timeout follows
// cfg.MailTimeout so a stalled relay cannot hold a request open.
func NewMailer(cfg *config.Config) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.Timeout = cfg.MailTimeout
	return &Mailer{dialer: d, from: cfg.SMTPFrom, host: cfg.SMTPHost}
}

// SendEmail delivers one message. It returns ctx.Err() if ctx ends first; the
// dial itself is then abandoned and bounded by the dialer timeout.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := m.newMessage(to, subject, body)

	errCh := make(chan error, 1)
	go func() { errCh <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	}
}

func (m *Mailer) newMessage(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", id.New(), m.host))
	msg.SetBody("text/plain", body)
	return msg
}
