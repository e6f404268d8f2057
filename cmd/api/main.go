package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stashly/stashly/internal/audit"
	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/config"
	"github.com/stashly/stashly/internal/infra"
	"github.com/stashly/stashly/internal/logging"
	"github.com/stashly/stashly/internal/routes"
	"github.com/stashly/stashly/internal/server"
	"github.com/stashly/stashly/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.AppName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", slog.Any("error", err))
		}
	}()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", slog.Any("error", err))
			}
		}()
	}

	attempts, sqliteDB, err := openAuditStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	if sqliteDB != nil {
		defer sqliteDB.Close()
	}

	client, err := backend.New(backend.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout})
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		SQLite:   sqliteDB,
		Cache:    cache,
		Backend:  client,
		Attempts: attempts,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("listening", slog.String("addr", cfg.Address()), slog.String("env", cfg.Env), slog.String("audit_store", cfg.AuditStore))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openAuditStore(ctx context.Context, cfg config.Config, db *pgxpool.Pool) (audit.Repository, *sql.DB, error) {
	switch cfg.AuditStore {
	case config.AuditStorePostgres:
		repo := audit.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("audit schema: %w", err)
		}
		return repo, nil, nil
	case config.AuditStoreSQLite:
		sqliteDB, err := infra.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := audit.NewSQLiteRepository(ctx, sqliteDB)
		if err != nil {
			sqliteDB.Close()
			return nil, nil, fmt.Errorf("audit schema: %w", err)
		}
		return repo, sqliteDB, nil
	default:
		return audit.NewMemoryRepository(), nil, nil
	}
}
