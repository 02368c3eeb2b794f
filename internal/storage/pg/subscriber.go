package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
)

// subscriberTx implements storage.SubscriberTx over an open *sql.Tx.
type subscriberTx struct {
	q Querier
}

func (t *subscriberTx) SaveSubscriber(ctx context.Context, subscriber domain.NewSubscriber) (domain.SubscriberId, error) {
	return saveSubscriber(ctx, t.q, subscriber)
}

func (t *subscriberTx) SaveSubscriptionToken(ctx context.Context, token string, subscriberId domain.SubscriberId) error {
	return saveSubscriptionToken(ctx, t.q, token, subscriberId)
}

func (s *Storage) SubscriberIdByToken(ctx context.Context, token string) (domain.SubscriberId, error) {
	return subscriberIdByToken(ctx, s.db, token)
}

func (s *Storage) ConfirmSubscriber(ctx context.Context, id domain.SubscriberId) error {
	return confirmSubscriber(ctx, s.db, id)
}

func (s *Storage) ConfirmedSubscribers(ctx context.Context) ([]domain.SubscriberRow, error) {
	return confirmedSubscribers(ctx, s.db)
}

func saveSubscriber(ctx context.Context, q Querier, subscriber domain.NewSubscriber) (domain.SubscriberId, error) {
	id := uuid.New()
	_, err := q.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		id, subscriber.Email.String(), subscriber.Name.String(), time.Now().UTC(), string(domain.StatusPendingConfirmation),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert subscriber: %w", err)
	}
	return id, nil
}

func saveSubscriptionToken(ctx context.Context, q Querier, token string, subscriberId domain.SubscriberId) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id) VALUES ($1, $2)`,
		token, subscriberId,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription token: %w", err)
	}
	return nil
}

func subscriberIdByToken(ctx context.Context, q Querier, token string) (domain.SubscriberId, error) {
	var id domain.SubscriberId
	err := q.QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`, token,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("subscription token: %w", internal_errors.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to query subscription token: %w", err)
	}
	return id, nil
}

// confirmSubscriber is idempotent: confirming twice is not an error.
func confirmSubscriber(ctx context.Context, q Querier, id domain.SubscriberId) error {
	result, err := q.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		string(domain.StatusConfirmed), id,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm subscriber: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for confirmation: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscriber %s: %w", id, internal_errors.ErrNotFound)
	}
	return nil
}

func confirmedSubscribers(ctx context.Context, q Querier) ([]domain.SubscriberRow, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, email, name FROM subscriptions WHERE status = $1 ORDER BY subscribed_at`,
		string(domain.StatusConfirmed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []domain.SubscriberRow
	for rows.Next() {
		var row domain.SubscriberRow
		if err := rows.Scan(&row.Id, &row.Email, &row.Name); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}
	return subscribers, nil
}
