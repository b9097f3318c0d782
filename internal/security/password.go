package security

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const DefaultCost = 12

// HashObserver receives the duration of every hash or verify call.
type HashObserver interface {
	ObserveHash(op string, d time.Duration)
}

// Hasher hashes and checks passwords with bcrypt. The number of bcrypt calls
// running at once is capped so a burst of logins cannot take every CPU.
type Hasher struct {
	cost     int
	slots    *semaphore.Weighted
	observer HashObserver
}

type Option func(*Hasher)

// WithCost sets the bcrypt work factor. Out of range values are ignored.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithConcurrency caps parallel hash/verify calls (default GOMAXPROCS).
func WithConcurrency(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithObserver(o HashObserver) Option {
	return func(h *Hasher) {
		h.observer = o
	}
}

func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{
		cost:  DefaultCost,
		slots: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of plain.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	h.observe("hash", start)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plain matches hash. A malformed hash or a cancelled
// context counts as a mismatch.
func (h *Hasher) Verify(ctx context.Context, plain, hash string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	h.observe("verify", start)

	return err == nil
}

func (h *Hasher) observe(op string, start time.Time) {
	if h.observer != nil {
		h.observer.ObserveHash(op, time.Since(start))
	}
}
