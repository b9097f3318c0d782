package http

import (
	"fmt"
	"log/slog"

	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/geocoder89/usergraph/internal/config"
	"github.com/geocoder89/usergraph/internal/graph"
	"github.com/geocoder89/usergraph/internal/http/handlers"
	"github.com/geocoder89/usergraph/internal/http/middlewares"
	"github.com/geocoder89/usergraph/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the collaborators the HTTP surface is built from. Prom, Gatherer
// and Counter are optional.
type Deps struct {
	Auth   graph.Authenticator
	Users  graph.UserQueries
	Posts  graph.PostQueries
	Store  handlers.Pinger
	Tokens auth.TokenVerifier

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Counter  middlewares.Counter
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	schema, err := graph.NewSchema(graph.NewResolver(deps.Auth, deps.Users, deps.Posts, log))
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("usergraph"))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	var failures middlewares.FailureRecorder
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		failures = deps.Prom
	}

	health := handlers.NewHealthHandler(deps.Store)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(deps.Tokens, log, failures)
	limiter := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, deps.Counter, log)
	gql := handlers.NewGraphQLHandler(schema)

	api := r.Group("/graphql",
		middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes),
		authMW.Identify(),
		limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
	)
	api.POST("", middlewares.RequireJSON(), gql.Post)
	api.GET("", gql.Get)

	return r, nil
}
