package transport

import (
	"context"
	"errors"
	"net/mail"
	"net/textproto"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/ticket-notify/internal/config"
)

// SMTPTransport delivers notifications over SMTP.
type SMTPTransport struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPTransport builds the production transport.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPTransport{cfg: cfg, dialer: dialer}
}

// Send delivers one notification. The send runs in its own goroutine so a
// stalled SMTP conversation respects ctx; an abandoned attempt finishes
// (or fails) in the background.
func (t *SMTPTransport) Send(ctx context.Context, notification Notification) error {
	if _, err := mail.ParseAddress(notification.To); err != nil {
		return PermanentError(err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(t.cfg.FromAddress, t.cfg.FromName))
	m.SetHeader("To", m.FormatAddress(notification.To, notification.ToName))
	m.SetHeader("Subject", notification.Subject)
	m.SetBody("text/plain", notification.TextBody)
	m.AddAlternative("text/html", notification.HTMLBody)

	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return TransientError(ctx.Err())
	case err := <-done:
		if err != nil {
			return classify(err)
		}
		return nil
	}
}

// TestConfiguration verifies the SMTP endpoint accepts a connection.
func (t *SMTPTransport) TestConfiguration(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		closer, err := t.dialer.Dial()
		if err == nil {
			_ = closer.Close()
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return TransientError(ctx.Err())
	case err := <-done:
		if err != nil {
			return classify(err)
		}
		return nil
	}
}

// classify maps SMTP reply codes to retry classes. 5xx replies are
// permanent rejections (bad address, policy); 4xx and connection-level
// errors are transient.
func classify(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return PermanentError(err)
	}
	return TransientError(err)
}
