package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/usergraph/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 24 * time.Hour

// ErrMissingSecret is returned when the manager is built without a signing key.
var ErrMissingSecret = &config.ConfigError{Key: "JWT_SECRET", Reason: "signing secret is required"}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type FailureKind string

const (
	FailureMalformed        FailureKind = "malformed"
	FailureSignatureInvalid FailureKind = "signature_invalid"
	FailureExpired          FailureKind = "expired"
)

// VerificationError describes why a token was rejected. Every kind means the
// token is untrusted; the kind only feeds logs and metrics.
type VerificationError struct {
	Kind FailureKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "token " + string(e.Kind)
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type ManagerOption func(*Manager)

// WithClock replaces time.Now for issuing and checking expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret string, ttl time.Duration, opts ...ManagerOption) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for email that expires after the manager TTL.
func (m *Manager) Issue(email string) (string, error) {
	now := m.now().UTC()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry. Failures are always *VerificationError.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, classify(err)
	}

	if claims.Email == "" {
		return nil, &VerificationError{Kind: FailureMalformed, Err: errors.New("missing email claim")}
	}

	return claims, nil
}

func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Kind: FailureExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerificationError{Kind: FailureSignatureInvalid, Err: err}
	default:
		return &VerificationError{Kind: FailureMalformed, Err: err}
	}
}

// FailureKindOf extracts the kind of a verification failure, or "" for other errors.
func FailureKindOf(err error) FailureKind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}
