package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/newsletter/internal/auth"
	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/domain"
	"github.com/itchan-dev/newsletter/internal/email"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/handler"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/service"
	"github.com/itchan-dev/newsletter/internal/storage/memory"
	"github.com/itchan-dev/newsletter/internal/storage/pg"
)

// Store is everything the services, the verifier and the CLI need from storage.
type Store interface {
	service.SubscriberStore
	auth.CredentialStore
	handler.HealthChecker
	SaveCredential(ctx context.Context, username, passwordHash string) (domain.UserId, error)
}

var (
	_ Store = (*pg.Storage)(nil)
	_ Store = (*memory.Storage)(nil)
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config  *config.Config
	Storage Store
	Sender  email.Sender
	Handler *handler.Handler

	cleanup func() error
}

// Cleanup releases the storage connection, if any.
func (d *Dependencies) Cleanup() error {
	if d.cleanup == nil {
		return nil
	}
	return d.cleanup()
}

// NewStore opens the storage backend named by cfg.Public.Storage.Driver.
// The returned cleanup is never nil.
func NewStore(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Public.Storage.Driver {
	case config.StorageDriverMemory:
		return memory.New(), func() error { return nil }, nil
	case config.StorageDriverPostgres:
		s, err := pg.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Public.Storage.Driver)
	}
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	store, cleanup, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := email.New(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	if err := EnsureOperator(ctx, cfg, store); err != nil {
		cleanup()
		return nil, err
	}

	deps, err := Wire(cfg, store, sender)
	if err != nil {
		cleanup()
		return nil, err
	}
	deps.cleanup = cleanup
	return deps, nil
}

// EnsureOperator creates the operator from cfg.Private.Operator unless one
// with that username already exists. It is a no-op when either field is empty.
func EnsureOperator(ctx context.Context, cfg *config.Config, store Store) error {
	op := cfg.Private.Operator
	if op.Username == "" || op.Password == "" {
		return nil
	}

	_, err := store.Credential(ctx, op.Username)
	if err == nil {
		return nil
	}
	if !internal_errors.IsNotFound(err) {
		return fmt.Errorf("failed to look up operator: %w", err)
	}

	hasher, err := auth.NewHasher(cfg.Public.Auth)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(op.Password)
	if err != nil {
		return err
	}
	userId, err := store.SaveCredential(ctx, op.Username, hash)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	logger.Log.Info("operator created from config", "user_id", userId, "username", op.Username)
	return nil
}

// Wire builds services and the handler on top of an already opened store
// and sender.
func Wire(cfg *config.Config, store Store, sender email.Sender) (*Dependencies, error) {
	hasher, err := auth.NewHasher(cfg.Public.Auth)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(store, hasher, cfg.Public.Auth.VerifyConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to init credential verifier: %w", err)
	}

	subscription := service.NewSubscription(store, sender, &cfg.Public)
	newsletter := service.NewNewsletter(verifier, store, sender, &cfg.Public)

	return &Dependencies{
		Config:  cfg,
		Storage: store,
		Sender:  sender,
		Handler: handler.New(subscription, newsletter, store, cfg),
	}, nil
}
