package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docent-ai/docent/internal/api"
	"github.com/docent-ai/docent/internal/log"
)

// runServe starts the HTTP API server, optionally running a full reference
// reload first.
func runServe(ctx context.Context, logger log.Logger) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.ReloadOnStartup {
		if err := withIngestionLock(func() error {
			a.runner.Run(ctx)
			return nil
		}); err != nil {
			return err
		}
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:    logger,
		Ingestor:  a.orchestrator,
		Store:     a.store,
		Responder: a.session,
		Resolver:  a.resolver,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", a.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
