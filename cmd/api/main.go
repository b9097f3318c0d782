package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/usergraph/internal/accounts"
	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/geocoder89/usergraph/internal/config"
	"github.com/geocoder89/usergraph/internal/db"
	httpx "github.com/geocoder89/usergraph/internal/http"
	"github.com/geocoder89/usergraph/internal/http/middlewares"
	"github.com/geocoder89/usergraph/internal/observability"
	"github.com/geocoder89/usergraph/internal/redisclient"
	"github.com/geocoder89/usergraph/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "usergraph", cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, err := openStore(ctx, cfg, prom, log)
	if err != nil {
		return err
	}
	defer store.close()

	hasher := security.NewHasher(
		security.WithCost(cfg.BcryptCost),
		security.WithConcurrency(cfg.HashConcurrency),
		security.WithObserver(prom),
	)

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	authn := accounts.NewAuthenticator(store.users, hasher, tokens, log).WithMetrics(prom)

	if err := db.EnsureAdminUser(ctx, store.users, hasher, cfg, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var counter middlewares.Counter
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx); err != nil {
			// the limiter fails open, so keep serving
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		counter = rdb
	}

	router, err := httpx.NewRouter(log, cfg, httpx.Deps{
		Auth:     authn,
		Users:    store.users,
		Posts:    store.posts,
		Store:    store.users,
		Tokens:   tokens,
		Prom:     prom,
		Gatherer: reg,
		Counter:  counter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
