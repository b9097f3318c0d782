// Package accounts implements credential login and account registration.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/geocoder89/usergraph/internal/domain/user"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("the email you entered is duplicate")
)

const (
	loginSucceeded     = "login succeeded"
	registerSucceeded  = "User registered successfully"
	tracerInstrumentor = "github.com/geocoder89/usergraph/internal/accounts"

	// hashed once and compared against when the email is unknown
	decoyPassword = "usergraph-decoy-password"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, acct user.NewAccount) (user.User, error)
}

type UserStore interface {
	UserReader
	UserWriter
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) bool
}

type TokenIssuer interface {
	Issue(email string) (string, error)
}

// OutcomeRecorder counts login and register results.
type OutcomeRecorder interface {
	RecordAuthOutcome(op, result string)
}

type LoginResult struct {
	Success bool
	Message string
	Token   string
}

type RegisterResult struct {
	Success bool
	Message string
}

type Authenticator struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	log     *slog.Logger
	metrics OutcomeRecorder

	decoyOnce sync.Once
	decoy     string
}

func NewAuthenticator(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}

	return &Authenticator{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (a *Authenticator) WithMetrics(m OutcomeRecorder) *Authenticator {
	a.metrics = m
	return a
}

// Login checks the password of the account registered under email and issues
// a bearer token for it. It never writes to the store.
func (a *Authenticator) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	ctx, span := otel.Tracer(tracerInstrumentor).Start(ctx, "accounts.Login")
	defer func() {
		a.finish(ctx, span, "login", err)
		span.End()
	}()

	found, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, fmt.Errorf("lookup account: %w", err)
		}
		// unknown emails pay for a compare too
		found = user.User{PasswordHash: a.decoyHash(ctx)}
	}

	matched := a.hasher.Verify(ctx, password, found.PasswordHash)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", ctxErr)
	}
	if !matched || found.Email == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(found.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{Success: true, Message: loginSucceeded, Token: token}, nil
}

// Register creates a USER account. Only the password hash reaches the store.
func (a *Authenticator) Register(ctx context.Context, email, name, password string) (res RegisterResult, err error) {
	ctx, span := otel.Tracer(tracerInstrumentor).Start(ctx, "accounts.Register")
	defer func() {
		a.finish(ctx, span, "register", err)
		span.End()
	}()

	_, err = a.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return RegisterResult{}, ErrDuplicateEmail
	case !errors.Is(err, user.ErrNotFound):
		return RegisterResult{}, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := a.hasher.Hash(ctx, password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	acct := user.NewAccount{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}

	_, err = a.users.Create(ctx, acct)
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, user.ErrEmailTaken) {
			return RegisterResult{}, ErrDuplicateEmail
		}
		return RegisterResult{}, fmt.Errorf("create account: %w", err)
	}

	return RegisterResult{Success: true, Message: registerSucceeded}, nil
}

func (a *Authenticator) decoyHash(ctx context.Context) string {
	a.decoyOnce.Do(func() {
		hash, err := a.hasher.Hash(context.WithoutCancel(ctx), decoyPassword)
		if err != nil {
			a.log.WarnContext(ctx, "decoy_hash_failed", "err", err)
			return
		}
		a.decoy = hash
	})

	return a.decoy
}

func (a *Authenticator) finish(ctx context.Context, span trace.Span, op string, err error) {
	result := outcome(err)

	span.SetAttributes(attribute.String("auth.result", result))
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		a.log.ErrorContext(ctx, op+"_failed", "err", err)
	} else {
		a.log.InfoContext(ctx, op, "result", result)
	}

	if a.metrics != nil {
		a.metrics.RecordAuthOutcome(op, result)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
