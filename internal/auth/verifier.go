package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/utils"
	"golang.org/x/sync/semaphore"
)

type CredentialStore interface {
	// Credential returns errors.ErrNotFound when username is unknown.
	Credential(ctx context.Context, username string) (domain.Credential, error)
}

// Verifier checks presented credentials against a CredentialStore.
// Unknown usernames are verified against a dummy hash made with the same
// hasher and parameters, so both negative paths cost one hash computation.
type Verifier struct {
	store     CredentialStore
	dummyHash string
	sem       *semaphore.Weighted
}

func NewVerifier(store CredentialStore, hasher Hasher, concurrency int) (*Verifier, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	dummyHash, err := hasher.Hash(utils.GenerateRandomString(32, "abcdefghijklmnopqrstuvwxyz0123456789"))
	if err != nil {
		return nil, fmt.Errorf("compute dummy hash: %w", err)
	}
	return &Verifier{
		store:     store,
		dummyHash: dummyHash,
		sem:       semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, creds domain.Credentials) (domain.UserId, error) {
	userId := uuid.Nil
	hash := v.dummyHash

	cred, err := v.store.Credential(ctx, creds.Username)
	switch {
	case err == nil:
		userId = cred.UserId
		hash = cred.PasswordHash
	case internal_errors.IsNotFound(err):
	default:
		logger.Log.Error("failed to load credential", "error", err)
		return uuid.Nil, internal_errors.Internal()
	}

	if err := v.verify(ctx, creds.Password, hash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return uuid.Nil, internal_errors.Unauthorized()
		}
		if errors.Is(err, ErrUnsupportedHash) {
			logger.Log.Error("stored password hash is unusable", "user_id", userId, "error", err)
			return uuid.Nil, internal_errors.Unauthorized()
		}
		logger.Log.Error("password verification failed", "user_id", userId, "error", err)
		return uuid.Nil, internal_errors.Internal()
	}

	// dummy hash matched by chance, still unknown user
	if userId == uuid.Nil {
		return uuid.Nil, internal_errors.Unauthorized()
	}
	return userId, nil
}

// verify runs the hash comparison off the caller's goroutine, bounded by sem.
func (v *Verifier) verify(ctx context.Context, password, hash string) error {
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer v.sem.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("password verification panicked: %v", p)
			}
		}()
		done <- VerifyPassword(password, hash)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
