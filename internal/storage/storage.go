// Package storage holds the types shared by the store implementations.
package storage

import (
	"context"

	"github.com/itchan-dev/newsletter/internal/domain"
)

// SubscriberTx is the write side of a subscribe transaction. Nothing written
// through it is visible to other readers until the enclosing WithTx commits.
type SubscriberTx interface {
	SaveSubscriber(ctx context.Context, subscriber domain.NewSubscriber) (domain.SubscriberId, error)
	SaveSubscriptionToken(ctx context.Context, token string, subscriberId domain.SubscriberId) error
}
