// Package store opens the configured workflow backend.
package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/proseed/proseed/modules/workflow/infrastructure/memory"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/schema"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/composables"
	"github.com/proseed/proseed/pkg/configuration"
	"github.com/proseed/proseed/pkg/snapshot"
)

type Backend struct {
	Name         string
	Repositories services.Repositories
	// Pool is set for the postgres backend only.
	Pool *pgxpool.Pool

	closers []func() error
}

// Context returns ctx carrying the backend's pool, if any.
func (b *Backend) Context(ctx context.Context) context.Context {
	if b.Pool == nil {
		return ctx
	}
	return composables.WithPool(ctx, b.Pool)
}

func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func Open(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (*Backend, error) {
	switch conf.Store.Backend {
	case configuration.StoreMemory:
		return &Backend{Name: conf.Store.Backend, Repositories: memory.New().Repositories()}, nil
	case configuration.StoreBadger:
		return openBadger(ctx, conf, logger)
	case configuration.StorePostgres:
		return openPostgres(ctx, conf, logger)
	}
	return nil, errors.Errorf("unknown store backend %q", conf.Store.Backend)
}

func openBadger(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (*Backend, error) {
	cfg := snapshot.DefaultConfig(conf.Store.BadgerPath)
	cfg.Logger = logger
	snap, err := snapshot.Open(cfg)
	if err != nil {
		return nil, err
	}
	st, err := memory.NewPersistent(ctx, snap)
	if err != nil {
		_ = snap.Close()
		return nil, err
	}
	logger.WithField("path", conf.Store.BadgerPath).Info("workflow state restored from badger")
	return &Backend{
		Name:         conf.Store.Backend,
		Repositories: st.Repositories(),
		closers:      []func() error{snap.Close},
	}, nil
}

func openPostgres(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (*Backend, error) {
	if conf.Store.AutoMigrate {
		if err := schema.Migrate(ctx, conf.Database.DSN(), schema.Up); err != nil {
			return nil, err
		}
		logger.Info("workflow schema migrated")
	}
	poolConf, err := pgxpool.ParseConfig(conf.Database.Opts)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	if conf.Database.MaxConns > 0 {
		poolConf.MaxConns = conf.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &Backend{
		Name:         conf.Store.Backend,
		Repositories: persistence.NewRepositories(pool),
		Pool:         pool,
		closers: []func() error{func() error {
			pool.Close()
			return nil
		}},
	}, nil
}
