package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"trainerleave/internal/platform/config"
)

// Run serves the API and the leave schedulers until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg := config.Load()
	slog.SetDefault(NewLogger(cfg, os.Stdout))
	if err := cfg.Validate(); err != nil {
		return err
	}

	services, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, services.RouterDeps()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("trainer leave server listening", "addr", cfg.Addr, "env", cfg.Environment, "jobLock", cfg.JobLockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return services.Runner.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Live streams only end when their sessions close.
		services.Registry.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		slog.Info("shutting down", "grace", cfg.ShutdownGracePeriod.String())
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
