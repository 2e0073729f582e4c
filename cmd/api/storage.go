package main

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/link-registry/internal/config"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/db"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/IgorGrieder/link-registry/internal/storage/memory"
	mongoStorage "github.com/IgorGrieder/link-registry/internal/storage/mongo"
	postgresStorage "github.com/IgorGrieder/link-registry/internal/storage/postgres"
	redisStorage "github.com/IgorGrieder/link-registry/internal/storage/redis"
	"go.uber.org/zap"
)

// linkStore is what the rest of main needs from a backend.
type linkStore interface {
	links.LinkRepository
	Ping(ctx context.Context) error
}

// initStorage opens the configured backend, optionally fronted by the Redis
// cache, and returns a cleanup releasing every connection it opened.
func initStorage(ctx context.Context, cfg *config.Config) (linkStore, func(), error) {
	store, cleanup, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Redis.Enabled {
		return store, cleanup, nil
	}

	client, err := redisStorage.New(ctx, redisStorage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Redis link cache enabled",
		zap.String("addr", cfg.Redis.Addr),
		zap.Duration("ttl", cfg.Redis.CacheTTL),
	)
	cached := redisStorage.NewCachedLinksRepository(store, client, cfg.Redis.CacheTTL)
	return cached, func() {
		_ = client.Close()
		cleanup()
	}, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (linkStore, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pgConn, err := db.ConnectPostgres(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo, err := postgresStorage.NewLinksRepository(pgConn)
		if err != nil {
			pgConn.Close()
			return nil, nil, fmt.Errorf("init postgres links repository: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			pgConn.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		logger.Info("Storage backend selected", zap.String("backend", "postgres"))
		return repo, pgConn.Close, nil

	case "mongo":
		mongoConn, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		repo, err := mongoStorage.NewLinksRepository(ctx, mongoConn)
		if err != nil {
			_ = mongoConn.Disconnect()
			return nil, nil, fmt.Errorf("init mongo links repository: %w", err)
		}
		logger.Info("Storage backend selected", zap.String("backend", "mongo"))
		return repo, func() { _ = mongoConn.Disconnect() }, nil

	default:
		logger.Warn("Using in-memory storage, links are lost on restart")
		return memory.NewLinksRepository(), func() {}, nil
	}
}
