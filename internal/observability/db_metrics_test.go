package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("create: %w", user.ErrEmailTaken), "unique_violation"},
		{user.ErrNotFound, "not_found"},
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("dial: connection refused"), "connection"},
		{errors.New("weird"), "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB_NilPromRunsFn(t *testing.T) {
	var p *Prom
	called := false

	if err := p.ObserveDB("op", func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("nil Prom should still run fn (called=%v err=%v)", called, err)
	}
}
