package middlewares

import (
	"log/slog"

	"github.com/geocoder89/usergraph/internal/actorctx"
	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/gin-gonic/gin"
)

// FailureRecorder counts token verification failures by kind.
type FailureRecorder interface {
	RecordTokenFailure(kind string)
}

type AuthMiddleware struct {
	tokens  auth.TokenVerifier
	log     *slog.Logger
	metrics FailureRecorder
}

func NewAuthMiddleware(tokens auth.TokenVerifier, log *slog.Logger, metrics FailureRecorder) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &AuthMiddleware{tokens: tokens, log: log, metrics: metrics}
}

// Identify resolves the caller once per request and stores the identity in
// the request context. It never rejects a request: a missing or bad token
// leaves the caller anonymous and protected operations refuse them later.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := auth.Resolve(c.GetHeader("Authorization"), m.tokens)

		if res.Failure != nil {
			kind := string(auth.FailureKindOf(res.Failure))
			m.log.InfoContext(c.Request.Context(), "token_rejected",
				"kind", kind,
				"path", c.Request.URL.Path,
			)
			if m.metrics != nil {
				m.metrics.RecordTokenFailure(kind)
			}
		}

		if res.Identity != nil {
			c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), *res.Identity))
		}

		c.Next()
	}
}
