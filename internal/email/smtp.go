package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
)

// Dialer is satisfied by *mail.Dialer.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTP struct {
	senderEmail string
	senderName  string
	dialer      Dialer
}

func NewSMTP(cfg config.Email, secrets config.EmailSecrets) *SMTP {
	d := mail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, secrets.SMTPUsername, secrets.SMTPPassword)
	d.Timeout = cfg.Timeout
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer}

	switch cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// "auto": STARTTLS when the server offers it
	}

	return NewSMTPWithDialer(cfg.SenderEmail, cfg.SenderName, d)
}

func NewSMTPWithDialer(senderEmail, senderName string, d Dialer) *SMTP {
	return &SMTP{senderEmail: senderEmail, senderName: senderName, dialer: d}
}

func (s *SMTP) Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error {
	m := mail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetAddressHeader("To", recipientEmail, recipientName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	// once dialing starts the message may be delivered, so the call is not
	// abandoned on cancellation; the dialer Timeout bounds it
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logger.Log.Debug("email sent", "transport", "smtp", "recipient", logger.RedactEmail(recipientEmail))
	return nil
}
