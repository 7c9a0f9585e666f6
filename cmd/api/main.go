package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YeJunlin777/yachts-system/internal/app/migrate"
	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/fixtures"
	httpx "github.com/YeJunlin777/yachts-system/internal/http"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	activitysvc "github.com/YeJunlin777/yachts-system/internal/service/activity"
	"github.com/YeJunlin777/yachts-system/internal/service/analytics"
	"github.com/YeJunlin777/yachts-system/internal/service/auth"
	"github.com/YeJunlin777/yachts-system/internal/service/customers"
	orderssvc "github.com/YeJunlin777/yachts-system/internal/service/orders"
	userssvc "github.com/YeJunlin777/yachts-system/internal/service/users"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/ws"
	"github.com/YeJunlin777/yachts-system/pkg/config"
	"github.com/YeJunlin777/yachts-system/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobStore, kvHealth, cleanup, err := openKV(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open kv backend", "backend", cfg.KVBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if key := strings.TrimSpace(cfg.KVEncryptionKey); key != "" {
		blobStore = kv.NewEncryptedStore(blobStore, key)
		log.Info("kv encryption enabled")
	}

	changeBus := bus.New()

	userStore, err := store.NewUserStore(ctx, blobStore, changeBus, log)
	if err != nil {
		log.Error("failed to load users", "error", err)
		os.Exit(1)
	}
	sessionStore, err := store.NewSessionStore(ctx, blobStore, changeBus, userStore, log)
	if err != nil {
		log.Error("failed to load session", "error", err)
		os.Exit(1)
	}
	orderStore, err := store.NewOrderStore(ctx, blobStore, changeBus, log)
	if err != nil {
		log.Error("failed to load orders", "error", err)
		os.Exit(1)
	}
	activityStore, err := store.NewActivityStore(ctx, blobStore, changeBus, log)
	if err != nil {
		log.Error("failed to load activity log", "error", err)
		os.Exit(1)
	}

	activityService := activitysvc.New(activityStore, log)
	authService := auth.New(sessionStore, activityService, log, cfg)
	userService := userssvc.New(userStore, sessionStore, activityService, log)
	customerService := customers.New(customers.MergedSource(fixtures.Customers, orderStore.List), log)
	orderService := orderssvc.New(orderStore, activityService, log)
	analyticsService := analytics.New(orderStore, log)

	hub := ws.NewHub()
	bridge := ws.NewBridge(changeBus, hub, log)
	defer bridge.Stop()

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authService, userService, customerService, orderService, activityService, analyticsService, hub, limiter, cfg.SSEHeartbeat, kvHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "kv_backend", cfg.KVBackend)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openKV builds the configured persistence backend and a matching health
// probe. The cleanup closes whatever the backend opened.
func openKV(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (kv.Store, func(context.Context) error, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.KVBackend)) {
	case "", "file":
		fileStore, err := kv.NewFileStore(cfg.KVDataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		health := func(ctx context.Context) error {
			if _, err := fileStore.Get(ctx, "yacht_users"); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
				return err
			}
			return nil
		}
		return fileStore, health, func() { _ = fileStore.Close() }, nil
	case "redis":
		redisStore, err := kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		health := func(ctx context.Context) error {
			if _, err := redisStore.Get(ctx, "yacht_users"); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
				return err
			}
			return nil
		}
		return redisStore, health, func() { _ = redisStore.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		if err := runner.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		pgStore := kv.NewPostgresStore(pool)
		return pgStore, pool.Ping, func() { pool.Close() }, nil
	default:
		return nil, nil, nil, errors.New("unknown kv backend: " + cfg.KVBackend)
	}
}
