package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/auth"
	"github.com/formsigner/api/internal/config"
	"github.com/formsigner/api/internal/db"
	"github.com/formsigner/api/internal/document"
	internalhttp "github.com/formsigner/api/internal/http"
	"github.com/formsigner/api/internal/realtime"
	"github.com/formsigner/api/internal/repo"
	"github.com/formsigner/api/internal/session"
	"github.com/formsigner/api/internal/storage"
	"github.com/formsigner/api/internal/subaccount"
	"github.com/formsigner/api/internal/support"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api exited with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	deps := internalhttp.Deps{
		Redis:  redisClient,
		JWT:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		Broker: realtime.NewBroker(redisClient),
	}

	pool, poolErr := db.NewPool(ctx, cfg.DBDSN)
	if poolErr != nil {
		// Degraded mode: sub-account sessions keep working off local storage,
		// everything backed by the database answers 503.
		log.Warn().Err(poolErr).Msg("database unreachable, starting degraded")

		store, err := session.OpenFileStore("subaccounts.json")
		if err != nil {
			return fmt.Errorf("fallback store: %w", err)
		}
		queries := repo.NewLocal(store)
		deps.SubAccounts = subaccount.NewService(
			subaccount.NewLocalRepository(store), queries, redisClient, cfg.SubAccountSessionTTL)
	} else {
		defer pool.Close()

		queries := repo.New(pool)
		deps.Pool = pool
		deps.Accounts = queries
		deps.SubAccounts = subaccount.NewService(
			subaccount.NewPostgresRepository(pool), queries, redisClient, cfg.SubAccountSessionTTL)

		var archive storage.Uploader = storage.NoopUploader{}
		if cfg.Archive.Enabled() {
			uploader, err := storage.NewS3Uploader(storage.S3Config{
				Endpoint:  cfg.Archive.Endpoint,
				Region:    cfg.Archive.Region,
				Bucket:    cfg.Archive.Bucket,
				AccessKey: cfg.Archive.AccessKey,
				SecretKey: cfg.Archive.SecretKey,
			})
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			archive = uploader
		}

		deps.Documents = document.NewService(document.NewRepository(pool), cfg.DocumentPageSize, archive)
		deps.Support = support.NewService(support.NewRepository(pool), deps.Broker)
	}

	handler := internalhttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
