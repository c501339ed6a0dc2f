// Command agent runs the AbleConnect offline agent: a loopback HTTP API that
// answers from the AbleConnect backend when it is reachable and from the
// local cache when it is not.
//
// @title        AbleConnect Agent API
// @version      1.0
// @description  Offline-first access to the AbleConnect marketplace, feed and chat.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/ableconnect/connect-agent/docs"
	"github.com/ableconnect/connect-agent/internal/api"
	"github.com/ableconnect/connect-agent/internal/api/middleware"
	"github.com/ableconnect/connect-agent/internal/core/service"
	"github.com/ableconnect/connect-agent/internal/infrastructure/cache"
	mongodb "github.com/ableconnect/connect-agent/internal/infrastructure/db/mongo"
	redisdb "github.com/ableconnect/connect-agent/internal/infrastructure/db/redis"
	"github.com/ableconnect/connect-agent/internal/infrastructure/db/sqlite"
	"github.com/ableconnect/connect-agent/internal/infrastructure/gateway"
	"github.com/ableconnect/connect-agent/internal/pkg/config"
	"github.com/ableconnect/connect-agent/pkg/logger"
)

const (
	serviceName     = "connect-agent"
	devJWTSecret    = "dev-only-secret"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: serviceName,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("agent stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Local cache backend ---
	kv, guard, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()
	store := cache.NewStore(kv, cfg.Cache.Namespace, logger.Component("cache"))
	log.Info().Str("backend", cfg.Cache.Backend).Str("namespace", cfg.Cache.Namespace).Msg("local cache ready")

	// --- Remote gateway ---
	gw, err := gateway.New(gateway.Config{
		BaseURL:    cfg.Backend.URL,
		Timeout:    cfg.Backend.Timeout,
		CSRFCookie: cfg.Backend.CSRFCookie,
	}, logger.Component("gateway"))
	if err != nil {
		return err
	}

	// --- Services ---
	dir := service.NewDirectory(store, logger.Component("directory"))
	deps := service.Deps{Store: store, Directory: dir, Guard: guard, Log: log}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}

	e := api.NewRouter(api.Deps{
		Session:   service.NewSessionService(gw, deps),
		Listings:  service.NewListingService(gw, deps),
		Feed:      service.NewFeedService(gw, deps),
		Chat:      service.NewChatService(gw, deps),
		Directory: dir,
		Store:     store,
		Backend:   gw,
		Tokens:    middleware.NewTokens(secret, cfg.TokenTTL),
		JWTSecret: secret,
		Log:       logger.Component("http"),
	})

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend.URL).Msg("agent listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openCache connects the configured cache backend. Only the redis backend
// shares its in-flight guard across processes; the others guard in memory.
func openCache(ctx context.Context, cfg *config.Config) (cache.KV, service.InFlightGuard, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case config.CacheSQLite:
		db, err := sqlite.Open(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return sqlite.NewKV(db), service.NewMemoryInFlight(), closeFn, nil

	case config.CacheRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() { _ = client.Close() }
		return redisdb.NewKV(client), redisdb.NewInFlight(client, cfg.Cache.InFlightTTL), closeFn, nil

	case config.CacheMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		return mongodb.NewKV(db), service.NewMemoryInFlight(), closeFn, nil

	case config.CacheMemory:
		return cache.NewMemoryKV(), service.NewMemoryInFlight(), noop, nil
	}
	return nil, nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
