package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/usergraph/internal/actorctx"
)

var ErrUnauthorized = errors.New("unauthorized")

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Resolution is the outcome of reading credentials off one request. A nil
// Identity means anonymous; Failure is set when a token was presented but
// rejected.
type Resolution struct {
	Identity *actorctx.Identity
	Failure  error
}

func (r Resolution) Anonymous() bool {
	return r.Identity == nil
}

// BearerToken pulls the token out of an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)

	scheme, rest, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	if strings.EqualFold(header, "Bearer") {
		return ""
	}

	return header
}

// Resolve turns an Authorization header into an identity. It never fails:
// a missing or rejected token resolves to anonymous.
func Resolve(header string, verifier TokenVerifier) Resolution {
	raw := BearerToken(header)
	if raw == "" {
		return Resolution{}
	}

	claims, err := verifier.Verify(raw)
	if err != nil {
		return Resolution{Failure: err}
	}

	return Resolution{Identity: &actorctx.Identity{Email: claims.Email}}
}

// RequireAuthenticated is the gate at the top of every protected operation.
func RequireAuthenticated(ctx context.Context) (actorctx.Identity, error) {
	id, ok := actorctx.IdentityFrom(ctx)
	if !ok {
		return actorctx.Identity{}, ErrUnauthorized
	}

	return id, nil
}
