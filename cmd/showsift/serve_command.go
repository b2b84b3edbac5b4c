package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/showsift/showsift/internal/api"
	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/metrics"
	"github.com/showsift/showsift/internal/scheduler"
	"github.com/showsift/showsift/internal/scheduler/tasks"
	"github.com/showsift/showsift/internal/websocket"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the status API and scheduled pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("database", cfg.Database.Path).
		Msg("Starting showsift")

	lockPath := cfg.Database.Path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another showsift instance is already running (lock %s)", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Msg("Failed to release instance lock")
		}
	}()

	db, store, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	hub := websocket.NewHub()
	go hub.Run()

	mets := metrics.New()
	if stats, err := store.GetStats(ctx); err == nil {
		mets.SetSeriesCounts(stats.SeriesByStatus)
	}

	svcs := buildServices(cfg, store, mets, hub, log)

	server := api.NewServer(store, hub, mets, cfg, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(log.Logger)
		if err != nil {
			return err
		}
		if err := tasks.RegisterIngestTask(sched, svcs.pipeline, &cfg.Scheduler); err != nil {
			return err
		}
		if err := tasks.RegisterResolveTask(sched, svcs.resolver, &cfg.Scheduler); err != nil {
			return err
		}
		if err := tasks.RegisterCacheCleanupTask(sched, svcs.tmdb.ResponseCache()); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
	} else {
		log.Info().Msg("Scheduler disabled, runs are manual only")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
	return nil
}
