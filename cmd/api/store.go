package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/usergraph/internal/accounts"
	"github.com/geocoder89/usergraph/internal/config"
	"github.com/geocoder89/usergraph/internal/db"
	"github.com/geocoder89/usergraph/internal/graph"
	"github.com/geocoder89/usergraph/internal/http/handlers"
	"github.com/geocoder89/usergraph/internal/observability"
	"github.com/geocoder89/usergraph/internal/repo/memory"
	"github.com/geocoder89/usergraph/internal/repo/postgres"
	"github.com/geocoder89/usergraph/internal/repo/sqlite"
)

type userStore interface {
	accounts.UserStore
	graph.UserQueries
	handlers.Pinger
}

type backend struct {
	users userStore
	posts graph.PostQueries
	close func()
}

// openStore connects the configured driver and applies migrations.
func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (backend, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			return backend{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.MigratePostgres(ctx, pool, log); err != nil {
			pool.Close()
			return backend{}, err
		}
		return backend{
			users: postgres.NewUsersRepo(pool, prom),
			posts: postgres.NewPostsRepo(pool, prom),
			close: pool.Close,
		}, nil

	case "sqlite":
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		if err := db.MigrateSQLite(ctx, sqlDB, log); err != nil {
			_ = sqlDB.Close()
			return backend{}, err
		}
		store := sqlite.New(sqlDB, prom)
		return backend{
			users: store,
			posts: store,
			close: func() { _ = store.Close() },
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return backend{users: store, posts: store, close: func() {}}, nil
	}
}
