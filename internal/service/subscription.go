package service

import (
	"context"
	"errors"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/domain"
	"github.com/itchan-dev/newsletter/internal/email"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/storage"
	"github.com/itchan-dev/newsletter/internal/utils"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, name, email string) (string, error)
	Confirm(ctx context.Context, token string) error
}

type SubscriberStore interface {
	WithTx(ctx context.Context, fn func(storage.SubscriberTx) error) error
	SubscriberIdByToken(ctx context.Context, token string) (domain.SubscriberId, error)
	ConfirmSubscriber(ctx context.Context, id domain.SubscriberId) error
	ConfirmedSubscribers(ctx context.Context) ([]domain.SubscriberRow, error)
}

type NotificationGateway interface {
	Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error
}

type Subscription struct {
	storage SubscriberStore
	gateway NotificationGateway
	baseURL string
}

func NewSubscription(storage SubscriberStore, gateway NotificationGateway, cfg *config.Public) *Subscription {
	return &Subscription{
		storage: storage,
		gateway: gateway,
		baseURL: cfg.Application.BaseURL,
	}
}

// Subscribe stores a pending subscriber with a fresh token and sends the
// confirmation email inside one transaction. Returns the token.
func (s *Subscription) Subscribe(ctx context.Context, rawName, rawEmail string) (string, error) {
	name, err := domain.ParseSubscriberName(rawName)
	if err != nil {
		subscriptionsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	address, err := domain.ParseSubscriberEmail(rawEmail)
	if err != nil {
		subscriptionsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	subscriber := domain.NewSubscriber{Email: address, Name: name}
	redacted := logger.RedactEmail(address.String())

	// Detached from cancellation: a send abandoned mid-flight may still be
	// delivered, and its token must then be committed.
	ctx = context.WithoutCancel(ctx)

	var token string
	err = s.storage.WithTx(ctx, func(tx storage.SubscriberTx) error {
		id, err := tx.SaveSubscriber(ctx, subscriber)
		if err != nil {
			logger.Log.Error("failed to save subscriber", "email", redacted, "error", err)
			return internal_errors.Storage()
		}

		token = utils.GenerateSubscriptionToken()
		if err := tx.SaveSubscriptionToken(ctx, token, id); err != nil {
			logger.Log.Error("failed to save subscription token", "subscriber_id", id, "error", err)
			return internal_errors.Storage()
		}

		link := email.ConfirmationLink(s.baseURL, token)
		if err := s.gateway.Send(ctx, address.String(), name.String(), email.ConfirmationSubject, email.ConfirmationBody(link)); err != nil {
			logger.Log.Error("failed to send confirmation email", "subscriber_id", id, "email", redacted, "error", err)
			return internal_errors.Notification()
		}
		return nil
	})
	if err != nil {
		subscriptionsTotal.WithLabelValues("failed").Inc()
		var e *internal_errors.ErrorWithStatusCode
		if errors.As(err, &e) {
			return "", err
		}
		// begin or commit failed
		logger.Log.Error("subscription transaction failed", "email", redacted, "error", err)
		return "", internal_errors.Storage()
	}

	subscriptionsTotal.WithLabelValues("created").Inc()
	logger.Log.Info("subscriber created", "email", redacted)
	return token, nil
}

// Confirm marks the subscriber owning token as confirmed. Repeating it is harmless.
func (s *Subscription) Confirm(ctx context.Context, token string) error {
	if token == "" {
		confirmationsTotal.WithLabelValues("missing_token").Inc()
		return internal_errors.MissingToken()
	}

	id, err := s.storage.SubscriberIdByToken(ctx, token)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			confirmationsTotal.WithLabelValues("unknown_token").Inc()
			return internal_errors.UnknownToken()
		}
		confirmationsTotal.WithLabelValues("failed").Inc()
		logger.Log.Error("failed to look up subscription token", "error", err)
		return internal_errors.Storage()
	}

	if err := s.storage.ConfirmSubscriber(ctx, id); err != nil {
		confirmationsTotal.WithLabelValues("failed").Inc()
		logger.Log.Error("failed to confirm subscriber", "subscriber_id", id, "error", err)
		return internal_errors.Storage()
	}

	confirmationsTotal.WithLabelValues("confirmed").Inc()
	logger.Log.Info("subscriber confirmed", "subscriber_id", id)
	return nil
}
