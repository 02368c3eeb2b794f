package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/storage"
)

type MockSubscriberTx struct {
	SaveSubscriberFunc        func(ctx context.Context, subscriber domain.NewSubscriber) (domain.SubscriberId, error)
	SaveSubscriptionTokenFunc func(ctx context.Context, token string, subscriberId domain.SubscriberId) error
}

func (m *MockSubscriberTx) SaveSubscriber(ctx context.Context, subscriber domain.NewSubscriber) (domain.SubscriberId, error) {
	if m.SaveSubscriberFunc != nil {
		return m.SaveSubscriberFunc(ctx, subscriber)
	}
	return uuid.New(), nil
}

func (m *MockSubscriberTx) SaveSubscriptionToken(ctx context.Context, token string, subscriberId domain.SubscriberId) error {
	if m.SaveSubscriptionTokenFunc != nil {
		return m.SaveSubscriptionTokenFunc(ctx, token, subscriberId)
	}
	return nil
}

type MockSubscriberStore struct {
	Tx                       *MockSubscriberTx
	CommitErr                error
	WithTxFunc               func(ctx context.Context, fn func(storage.SubscriberTx) error) error
	SubscriberIdByTokenFunc  func(ctx context.Context, token string) (domain.SubscriberId, error)
	ConfirmSubscriberFunc    func(ctx context.Context, id domain.SubscriberId) error
	ConfirmedSubscribersFunc func(ctx context.Context) ([]domain.SubscriberRow, error)
}

func (m *MockSubscriberStore) WithTx(ctx context.Context, fn func(storage.SubscriberTx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	tx := m.Tx
	if tx == nil {
		tx = &MockSubscriberTx{}
	}
	if err := fn(tx); err != nil {
		return err
	}
	return m.CommitErr
}

func (m *MockSubscriberStore) SubscriberIdByToken(ctx context.Context, token string) (domain.SubscriberId, error) {
	if m.SubscriberIdByTokenFunc != nil {
		return m.SubscriberIdByTokenFunc(ctx, token)
	}
	// Default: Not found
	return uuid.Nil, internal_errors.ErrNotFound
}

func (m *MockSubscriberStore) ConfirmSubscriber(ctx context.Context, id domain.SubscriberId) error {
	if m.ConfirmSubscriberFunc != nil {
		return m.ConfirmSubscriberFunc(ctx, id)
	}
	return nil
}

func (m *MockSubscriberStore) ConfirmedSubscribers(ctx context.Context) ([]domain.SubscriberRow, error) {
	if m.ConfirmedSubscribersFunc != nil {
		return m.ConfirmedSubscribersFunc(ctx)
	}
	return nil, nil
}

type MockGateway struct {
	SendFunc func(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error
}

func (m *MockGateway) Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, recipientEmail, recipientName, subject, htmlBody)
	}
	return nil
}

type MockVerifier struct {
	VerifyFunc func(ctx context.Context, creds domain.Credentials) (domain.UserId, error)
}

func (m *MockVerifier) Verify(ctx context.Context, creds domain.Credentials) (domain.UserId, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, creds)
	}
	return uuid.New(), nil
}
