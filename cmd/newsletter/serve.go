package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/router"
	"github.com/itchan-dev/newsletter/internal/setup"
	"github.com/itchan-dev/newsletter/internal/storage/pg"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.Config) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving (postgres only)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Cleanup(); err != nil {
			logger.Log.Error("failed to close storage", "error", err)
		}
	}()

	if migrate {
		pgStorage, ok := deps.Storage.(*pg.Storage)
		if !ok {
			return errors.New("--migrate requires the postgres storage driver")
		}
		if err := pgStorage.Migrate(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router.New(deps),
		ReadTimeout:  cfg.Public.Application.ReadTimeout,
		WriteTimeout: cfg.Public.Application.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server started",
			"address", srv.Addr,
			"storage", cfg.Public.Storage.Driver,
			"email_transport", cfg.Public.Email.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info("server stopped")
	return nil
}
