package email

import (
	"context"
	"sync"

	"github.com/itchan-dev/newsletter/internal/logger"
)

type Message struct {
	RecipientEmail string
	RecipientName  string
	Subject        string
	HTMLBody       string
}

// Outbox keeps sent messages in memory instead of delivering them.
// FailFunc, when set, decides per recipient whether the send fails.
type Outbox struct {
	FailFunc func(recipientEmail string) error

	mu       sync.Mutex
	messages []Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.FailFunc != nil {
		if err := o.FailFunc(recipientEmail); err != nil {
			return err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, Message{
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		Subject:        subject,
		HTMLBody:       htmlBody,
	})
	logger.Log.Debug("email captured", "transport", "memory", "recipient", logger.RedactEmail(recipientEmail))
	return nil
}

func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
}
