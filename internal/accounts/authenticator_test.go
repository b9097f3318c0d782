package accounts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/usergraph/internal/accounts"
	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/geocoder89/usergraph/internal/repo/memory"
	"github.com/geocoder89/usergraph/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsers struct {
	getFn    func(ctx context.Context, email string) (user.User, error)
	createFn func(ctx context.Context, acct user.NewAccount) (user.User, error)
	created  []user.NewAccount
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, acct user.NewAccount) (user.User, error) {
	f.created = append(f.created, acct)
	if f.createFn != nil {
		return f.createFn(ctx, acct)
	}
	return user.User{ID: 1, Email: acct.Email}, nil
}

type recordingMetrics struct {
	mu      sync.Mutex
	results []string
}

func (r *recordingMetrics) RecordAuthOutcome(op, result string) {
	r.mu.Lock()
	r.results = append(r.results, op+":"+result)
	r.mu.Unlock()
}

func newDeps(t *testing.T) (*security.Hasher, *auth.Manager) {
	t.Helper()

	tokens, err := auth.NewManager("test-secret-key", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return security.NewHasher(security.WithCost(bcrypt.MinCost)), tokens
}

func TestLogin_Success(t *testing.T) {
	hasher, tokens := newDeps(t)
	hash, _ := hasher.Hash(context.Background(), "pw123")

	users := &fakeUsers{getFn: func(_ context.Context, email string) (user.User, error) {
		return user.User{ID: 7, Email: email, PasswordHash: hash}, nil
	}}

	metrics := &recordingMetrics{}
	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger()).WithMetrics(metrics)

	res, err := a.Login(context.Background(), "u@x.com", "pw123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !res.Success || res.Message != "login succeeded" || res.Token == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	claims, err := tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Email != "u@x.com" {
		t.Fatalf("token email = %q", claims.Email)
	}
	if len(users.created) != 0 {
		t.Fatalf("login must not write to the store")
	}
	if len(metrics.results) != 1 || metrics.results[0] != "login:success" {
		t.Fatalf("unexpected metrics %v", metrics.results)
	}
}

func TestLogin_UnknownEmailAndWrongPasswordLookTheSame(t *testing.T) {
	hasher, tokens := newDeps(t)
	hash, _ := hasher.Hash(context.Background(), "realpass")

	users := &fakeUsers{getFn: func(_ context.Context, email string) (user.User, error) {
		if email == "real@x.com" {
			return user.User{ID: 1, Email: email, PasswordHash: hash}, nil
		}
		return user.User{}, user.ErrNotFound
	}}

	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger())

	res1, err1 := a.Login(context.Background(), "nonexistent@x.com", "anything")
	res2, err2 := a.Login(context.Background(), "real@x.com", "wrongpass")

	if !errors.Is(err1, accounts.ErrInvalidCredentials) || !errors.Is(err2, accounts.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v and %v", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("error shapes differ: %q vs %q", err1, err2)
	}
	if res1 != res2 || res1.Token != "" {
		t.Fatalf("results differ or leak a token: %+v vs %+v", res1, res2)
	}
}

func TestLogin_StoreFailureIsNotInvalidCredentials(t *testing.T) {
	hasher, tokens := newDeps(t)
	boom := errors.New("connection refused")

	users := &fakeUsers{getFn: func(context.Context, string) (user.User, error) {
		return user.User{}, boom
	}}

	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger())

	_, err := a.Login(context.Background(), "u@x.com", "pw")
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials")
	}
}

func TestRegister_StoresHashOnly(t *testing.T) {
	hasher, tokens := newDeps(t)
	users := &fakeUsers{}

	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger())

	res, err := a.Register(context.Background(), "a@x.com", "Alice", "pw")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if !res.Success || res.Message != "User registered successfully" {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(users.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(users.created))
	}

	acct := users.created[0]
	if acct.Email != "a@x.com" || acct.Name != "Alice" || acct.Role != user.RoleUser {
		t.Fatalf("unexpected account %+v", acct)
	}
	if acct.PasswordHash == "pw" || !strings.HasPrefix(acct.PasswordHash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", acct.PasswordHash)
	}
	if !hasher.Verify(context.Background(), "pw", acct.PasswordHash) {
		t.Fatalf("stored hash does not match the password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	hasher, tokens := newDeps(t)
	store := memory.NewStore()
	a := accounts.NewAuthenticator(store, hasher, tokens, quietLogger())
	ctx := context.Background()

	if _, err := a.Register(ctx, "a@x.com", "Alice", "pw"); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, err := a.Register(ctx, "a@x.com", "Bob", "pw2")
	if !errors.Is(err, accounts.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	u, err := store.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if u.Name != "Alice" || !hasher.Verify(ctx, "pw", u.PasswordHash) {
		t.Fatalf("first account was modified: %+v", u)
	}
}

func TestRegister_UniquenessViolationBecomesDuplicate(t *testing.T) {
	hasher, tokens := newDeps(t)
	users := &fakeUsers{createFn: func(context.Context, user.NewAccount) (user.User, error) {
		return user.User{}, user.ErrEmailTaken
	}}

	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger())

	_, err := a.Register(context.Background(), "a@x.com", "A", "pw")
	if !errors.Is(err, accounts.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	hasher, tokens := newDeps(t)
	store := memory.NewStore()
	a := accounts.NewAuthenticator(store, hasher, tokens, quietLogger())

	const callers = 8
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Register(context.Background(), "same@x.com", "N", "pw")
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, accounts.ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ok != 1 || dup != callers-1 {
		t.Fatalf("ok=%d dup=%d, want 1 and %d", ok, dup, callers-1)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	hasher, tokens := newDeps(t)
	a := accounts.NewAuthenticator(memory.NewStore(), hasher, tokens, quietLogger())
	ctx := context.Background()

	if _, err := a.Register(ctx, "u@x.com", "U", "pw123"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	res, err := a.Login(ctx, "u@x.com", "pw123")
	if err != nil || res.Token == "" {
		t.Fatalf("Login = %+v, %v", res, err)
	}

	if _, err := a.Login(ctx, "u@x.com", "pw1234"); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

type countingHasher struct {
	*security.Hasher

	mu       sync.Mutex
	verifies int
	verifyFn func(ctx context.Context, plain, hash string) bool
}

func (c *countingHasher) Verify(ctx context.Context, plain, hash string) bool {
	c.mu.Lock()
	c.verifies++
	c.mu.Unlock()

	if c.verifyFn != nil {
		return c.verifyFn(ctx, plain, hash)
	}
	return c.Hasher.Verify(ctx, plain, hash)
}

func TestLogin_UnknownEmailStillComparesPassword(t *testing.T) {
	base, tokens := newDeps(t)
	hasher := &countingHasher{Hasher: base}

	a := accounts.NewAuthenticator(&fakeUsers{}, hasher, tokens, quietLogger())

	for i := 0; i < 2; i++ {
		if _, err := a.Login(context.Background(), "ghost@x.com", "usergraph-decoy-password"); !errors.Is(err, accounts.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}

	if hasher.verifies != 2 {
		t.Fatalf("verify calls = %d, want one per login", hasher.verifies)
	}
}

func TestLogin_CanceledContextIsNotInvalidCredentials(t *testing.T) {
	base, tokens := newDeps(t)
	hasher := &countingHasher{
		Hasher:   base,
		verifyFn: func(context.Context, string, string) bool { return false },
	}

	users := &fakeUsers{getFn: func(_ context.Context, email string) (user.User, error) {
		return user.User{ID: 1, Email: email, PasswordHash: "$2a$04$whatever"}, nil
	}}

	metrics := &recordingMetrics{}
	a := accounts.NewAuthenticator(users, hasher, tokens, quietLogger()).WithMetrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Login(ctx, "u@x.com", "pw")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("cancellation must not look like bad credentials")
	}
	if len(metrics.results) != 1 || metrics.results[0] != "login:canceled" {
		t.Fatalf("unexpected metrics %v", metrics.results)
	}
}
