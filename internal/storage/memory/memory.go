// Package memory is an in-process store with the same transactional
// behaviour as the postgres one. Writes made inside WithTx are staged and
// applied under the lock only when the callback succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/storage"
)

var ErrConflict = errors.New("unique constraint violated")

type record struct {
	id           domain.SubscriberId
	email        string
	name         string
	status       domain.SubscriptionStatus
	subscribedAt time.Time
}

type Storage struct {
	mu          sync.RWMutex
	subscribers map[domain.SubscriberId]record
	emails      map[string]domain.SubscriberId
	tokens      map[string]domain.SubscriberId
	tokenOwners map[domain.SubscriberId]string
	credentials map[string]domain.Credential
}

func New() *Storage {
	return &Storage{
		subscribers: make(map[domain.SubscriberId]record),
		emails:      make(map[string]domain.SubscriberId),
		tokens:      make(map[string]domain.SubscriberId),
		tokenOwners: make(map[domain.SubscriberId]string),
		credentials: make(map[string]domain.Credential),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	s           *Storage
	subscribers []record
	tokens      map[string]domain.SubscriberId
}

func (t *tx) SaveSubscriber(ctx context.Context, subscriber domain.NewSubscriber) (domain.SubscriberId, error) {
	email := subscriber.Email.String()

	t.s.mu.RLock()
	_, exists := t.s.emails[email]
	t.s.mu.RUnlock()
	for _, r := range t.subscribers {
		if r.email == email {
			exists = true
		}
	}
	if exists {
		return uuid.Nil, fmt.Errorf("subscriber email: %w", ErrConflict)
	}

	r := record{
		id:           uuid.New(),
		email:        email,
		name:         subscriber.Name.String(),
		status:       domain.StatusPendingConfirmation,
		subscribedAt: time.Now().UTC(),
	}
	t.subscribers = append(t.subscribers, r)
	return r.id, nil
}

func (t *tx) SaveSubscriptionToken(ctx context.Context, token string, subscriberId domain.SubscriberId) error {
	if _, ok := t.tokens[token]; ok {
		return fmt.Errorf("subscription token: %w", ErrConflict)
	}
	for _, owner := range t.tokens {
		if owner == subscriberId {
			return fmt.Errorf("subscription token owner: %w", ErrConflict)
		}
	}
	t.tokens[token] = subscriberId
	return nil
}

func (s *Storage) WithTx(ctx context.Context, fn func(storage.SubscriberTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{s: s, tokens: make(map[string]domain.SubscriberId)}
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

// commit re-checks every constraint under the write lock before applying
// anything, so a failed commit leaves no partial state.
func (s *Storage) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[domain.SubscriberId]bool, len(t.subscribers))
	for _, r := range t.subscribers {
		if _, ok := s.emails[r.email]; ok {
			return fmt.Errorf("failed to commit transaction: subscriber email: %w", ErrConflict)
		}
		staged[r.id] = true
	}
	for token, owner := range t.tokens {
		if _, ok := s.tokens[token]; ok {
			return fmt.Errorf("failed to commit transaction: subscription token: %w", ErrConflict)
		}
		if _, ok := s.tokenOwners[owner]; ok {
			return fmt.Errorf("failed to commit transaction: subscription token owner: %w", ErrConflict)
		}
		if _, ok := s.subscribers[owner]; !ok && !staged[owner] {
			return fmt.Errorf("failed to commit transaction: subscriber %s does not exist", owner)
		}
	}

	for _, r := range t.subscribers {
		s.subscribers[r.id] = r
		s.emails[r.email] = r.id
	}
	for token, owner := range t.tokens {
		s.tokens[token] = owner
		s.tokenOwners[owner] = token
	}
	return nil
}

func (s *Storage) SubscriberIdByToken(ctx context.Context, token string) (domain.SubscriberId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, fmt.Errorf("subscription token: %w", internal_errors.ErrNotFound)
	}
	return id, nil
}

func (s *Storage) ConfirmSubscriber(ctx context.Context, id domain.SubscriberId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.subscribers[id]
	if !ok {
		return fmt.Errorf("subscriber %s: %w", id, internal_errors.ErrNotFound)
	}
	r.status = domain.StatusConfirmed
	s.subscribers[id] = r
	return nil
}

func (s *Storage) ConfirmedSubscribers(ctx context.Context) ([]domain.SubscriberRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var confirmed []record
	for _, r := range s.subscribers {
		if r.status == domain.StatusConfirmed {
			confirmed = append(confirmed, r)
		}
	}
	sort.Slice(confirmed, func(i, j int) bool {
		return confirmed[i].subscribedAt.Before(confirmed[j].subscribedAt)
	})

	rows := make([]domain.SubscriberRow, 0, len(confirmed))
	for _, r := range confirmed {
		rows = append(rows, domain.SubscriberRow{Id: r.id, Email: r.email, Name: r.name})
	}
	return rows, nil
}

// Subscriber returns the stored subscriber with its status.
func (s *Storage) Subscriber(ctx context.Context, id domain.SubscriberId) (domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.subscribers[id]
	if !ok {
		return domain.Subscriber{}, fmt.Errorf("subscriber %s: %w", id, internal_errors.ErrNotFound)
	}
	return domain.Subscriber{
		Id:           r.id,
		Email:        domain.SubscriberEmail(r.email),
		Name:         domain.SubscriberName(r.name),
		Status:       r.status,
		SubscribedAt: r.subscribedAt,
	}, nil
}

func (s *Storage) Credential(ctx context.Context, username string) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return domain.Credential{}, fmt.Errorf("user: %w", internal_errors.ErrNotFound)
	}
	return cred, nil
}

func (s *Storage) SaveCredential(ctx context.Context, username, passwordHash string) (domain.UserId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[username]; ok {
		return uuid.Nil, fmt.Errorf("user %q: %w", username, ErrConflict)
	}
	id := uuid.New()
	s.credentials[username] = domain.Credential{UserId: id, Username: username, PasswordHash: passwordHash}
	return id, nil
}
