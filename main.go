package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/admin"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/contact"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback/postgres"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback/sqlite"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback/supabase"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/logger"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/portfolio"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/ratelimit"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/server"
)

const cleanupInterval = 24 * time.Hour

func main() {
	log := logger.GetLogger()
	defer logger.Close()

	if err := run(log); err != nil {
		log.Errorw("Server exited with error", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openFeedback(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	limiter, closeRedis := openLimiter(ctx, cfg, log)
	defer closeRedis()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	store, err := admin.OpenStore(ctx, cfg.Admin.VisitorsDBPath, log)
	if err != nil {
		return fmt.Errorf("failed to open visitor store: %w", err)
	}
	defer store.Close()

	adminHandler, err := admin.New(store, repo, cfg.Admin, cfg.IsProduction(), log)
	if err != nil {
		return fmt.Errorf("failed to set up admin: %w", err)
	}
	go adminHandler.RunCleanup(ctx, cleanupInterval)

	srv, err := server.New(server.Deps{
		Config:   cfg,
		Repo:     repo,
		Site:     portfolio.Default().WithProse(prose()),
		Contact:  contact.NewSender(cfg.Contact, log),
		Limiter:  limiter,
		Gatherer: reg,
		Admin:    adminHandler,
		Log:      log,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment, "backend", cfg.Feedback.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	adminHandler.Wait()
	log.Info("Server exited")
	return nil
}

// openFeedback builds the configured feedback repository and the function
// that releases it.
func openFeedback(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (feedback.Repository, func(), error) {
	switch cfg.Feedback.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewFromPool(pool, log), pool.Close, nil

	case config.BackendSupabase:
		repo, err := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, log)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil

	default:
		repo, err := sqlite.Open(cfg.SQLite.Path, log)
		if err != nil {
			return nil, nil, err
		}
		log.Infow("Using SQLite feedback store", "path", cfg.SQLite.Path)
		return repo, closer(repo, log), nil
	}
}

// openLimiter uses Redis when it is configured and reachable so limits hold
// across instances, and an in-process limiter otherwise.
func openLimiter(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (ratelimit.Limiter, func()) {
	n, window := cfg.RateLimit.Submissions, cfg.RateLimit.Window
	if cfg.Redis.Address == "" {
		return ratelimit.New(nil, n, window), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warnw("Redis unavailable, using in-memory rate limiting", "address", cfg.Redis.Address, "error", err)
		client.Close()
		return ratelimit.New(nil, n, window), func() {}
	}
	log.Infow("Connected to Redis", "address", cfg.Redis.Address)
	return ratelimit.New(client, n, window), closer(client, log)
}

func closer(c io.Closer, log *zap.SugaredLogger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warnw("Error closing resource", "error", err)
		}
	}
}
