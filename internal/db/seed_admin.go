package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/usergraph/internal/config"
	"github.com/geocoder89/usergraph/internal/domain/user"
)

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, acct user.NewAccount) (user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

// EnsureAdminUser creates the configured ADMIN account if it does not exist
// yet. It is a no-op when no admin credentials are configured.
func EnsureAdminUser(ctx context.Context, store AccountStore, hasher PasswordHasher, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists
	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(ctx, cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, user.NewAccount{
		Email:        cfg.AdminEmail,
		Name:         cfg.AdminName,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	})

	// another instance seeded it first
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	if err == nil {
		log.Info("admin account created", "email", cfg.AdminEmail)
	}

	return err
}
