// Package app wires configuration into live dependencies. The server and
// territoryctl share it so both talk to the same store and lock.
package app

import (
	"context"
	"fmt"

	"github.com/lalith-99/territorydesk/internal/config"
	"github.com/lalith-99/territorydesk/internal/db"
	"github.com/lalith-99/territorydesk/internal/lock"
	"github.com/lalith-99/territorydesk/internal/repository"
	"github.com/lalith-99/territorydesk/internal/repository/memory"
	"github.com/lalith-99/territorydesk/internal/repository/postgres"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps holds opened resources. Close releases them in reverse order.
type Deps struct {
	Store  repository.Store
	Locker lock.Locker
	// Checks are the health checks for the opened backends.
	Checks  map[string]func(context.Context) error
	closers []func()
}

func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// Open connects the configured store (migrating it first when asked) and
// the optional Redis lock.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	d := &Deps{Checks: make(map[string]func(context.Context) error)}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store; data is lost on exit")
		d.Store = memory.New().Store()
	default:
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.closers = append(d.closers, database.Close)
		d.Store = postgres.New(database.Pool())
		d.Checks["postgres"] = database.Health
	}

	d.Locker = lock.NopLocker{}
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		d.closers = append(d.closers, func() { client.Close() })
		d.Locker = lock.NewRedisLocker(client, "territorydesk:jobs:")
		d.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("job run lock backed by redis", zap.String("addr", redisAddr(client)))
	}

	return d, nil
}

func redisAddr(client *redis.Client) string {
	return client.Options().Addr
}
