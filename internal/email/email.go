package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/itchan-dev/newsletter/internal/config"
)

// Sender delivers a single HTML message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error
}

// New builds the sender selected by email.transport.
func New(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.Public.Email.Transport {
	case config.TransportSMTP:
		return NewSMTP(cfg.Public.Email, cfg.Private.Email), nil
	case config.TransportSES:
		return NewSES(ctx, cfg.Public.Email, cfg.Private.Email)
	case config.TransportMemory:
		return NewOutbox(), nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.Public.Email.Transport)
	}
}

const ConfirmationSubject = "Welcome! Please confirm your newsletter subscription"

// ConfirmationLink points at the confirm endpoint of the public base URL.
func ConfirmationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", baseURL, url.QueryEscape(token))
}

func ConfirmationBody(link string) string {
	return fmt.Sprintf(`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`, link)
}
