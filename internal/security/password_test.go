package security

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(opts ...Option) *Hasher {
	return NewHasher(append([]Option{WithCost(bcrypt.MinCost)}, opts...)...)
}

func TestNewHasher_DefaultCost(t *testing.T) {
	h := NewHasher()
	if h.Cost() != 12 {
		t.Fatalf("default cost = %d, want 12", h.Cost())
	}

	h = NewHasher(WithCost(99))
	if h.Cost() != 12 {
		t.Fatalf("out of range cost should be ignored, got %d", h.Cost())
	}
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	for _, plain := range []string{"pw123", "correct horse battery staple", "ünïcödé", " "} {
		hash, err := h.Hash(ctx, plain)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", plain, err)
		}
		if hash == plain || !strings.HasPrefix(hash, "$2") {
			t.Fatalf("unexpected hash format: %q", hash)
		}
		if !h.Verify(ctx, plain, hash) {
			t.Fatalf("Verify(%q) = false, want true", plain)
		}
		if h.Verify(ctx, plain+"x", hash) {
			t.Fatalf("Verify with different password = true, want false")
		}
	}
}

func TestHash_IsSalted(t *testing.T) {
	h := newTestHasher()

	a, err := h.Hash(context.Background(), "same")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash(context.Background(), "same")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password should differ")
	}
}

func TestHash_UsesConfiguredCost(t *testing.T) {
	h := NewHasher(WithCost(5))

	hash, err := h.Hash(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost error: %v", err)
	}
	if cost != 5 {
		t.Fatalf("cost = %d, want 5", cost)
	}
}

func TestVerify_MalformedHashIsMismatch(t *testing.T) {
	h := newTestHasher()

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		if h.Verify(context.Background(), "pw", hash) {
			t.Fatalf("Verify against %q = true, want false", hash)
		}
	}
}

func TestVerify_CancelledContextWhileWaiting(t *testing.T) {
	h := newTestHasher(WithConcurrency(1))

	hash, err := h.Hash(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	// hold the only slot
	if err := h.slots.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if h.Verify(ctx, "pw", hash) {
		t.Fatalf("Verify should fail when no slot frees up before the deadline")
	}
	if _, err := h.Hash(ctx, "pw"); err == nil {
		t.Fatalf("Hash should return the context error")
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingObserver) ObserveHash(op string, _ time.Duration) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func TestHasher_ReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	h := newTestHasher(WithObserver(obs))

	hash, _ := h.Hash(context.Background(), "pw")
	h.Verify(context.Background(), "pw", hash)

	if len(obs.ops) != 2 || obs.ops[0] != "hash" || obs.ops[1] != "verify" {
		t.Fatalf("unexpected observed ops: %v", obs.ops)
	}
}

func TestHasher_ParallelCalls(t *testing.T) {
	h := newTestHasher(WithConcurrency(2))
	hash, _ := h.Hash(context.Background(), "pw")

	var wg sync.WaitGroup
	errs := make(chan string, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !h.Verify(context.Background(), "pw", hash) {
				errs <- "verify failed"
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Fatal(e)
	}
}
