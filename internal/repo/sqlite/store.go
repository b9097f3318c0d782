package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/usergraph/internal/domain/post"
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/geocoder89/usergraph/internal/observability"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = `id, email, password_hash, name, age, role, is_active, created_at, updated_at`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements user and post persistence over a single SQLite file.
type Store struct {
	sqlDB *sql.DB
	prom  *observability.Prom
}

// New wraps an open, migrated database; prom may be nil.
func New(sqlDB *sql.DB, prom *observability.Prom) *Store {
	return &Store{sqlDB: sqlDB, prom: prom}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, acct user.NewAccount) (user.User, error) {
	if err := acct.Validate(); err != nil {
		return user.User{}, err
	}

	u := acct.Build(time.Now().UTC())

	err := s.prom.ObserveDB("users.create", func() error {
		return s.sqlDB.QueryRowContext(ctx,
			`INSERT INTO users (email, password_hash, name, age, role, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			u.Email, u.PasswordHash, u.Name, u.Age, string(u.Role), u.IsActive, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
		).Scan(&u.ID)
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	// round-trip precision
	u.CreatedAt = fromMillis(toMillis(u.CreatedAt))
	u.UpdatedAt = u.CreatedAt

	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) GetByID(ctx context.Context, id int64) (user.User, error) {
	return s.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) List(ctx context.Context, p user.Pagination) ([]user.User, error) {
	out := make([]user.User, 0, p.Limit())

	err := s.prom.ObserveDB("users.list", func() error {
		rows, err := s.sqlDB.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT ? OFFSET ?`,
			p.Limit(), p.Offset(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err := s.prom.ObserveDB("posts.create", func() error {
		return s.sqlDB.QueryRowContext(ctx,
			`INSERT INTO posts (title, body, user_id, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
			p.Title, p.Body, p.UserID, toMillis(p.CreatedAt),
		).Scan(&p.ID)
	})

	if err != nil {
		if isForeignKeyViolation(err) {
			return post.Post{}, user.ErrNotFound
		}
		return post.Post{}, err
	}

	p.CreatedAt = fromMillis(toMillis(p.CreatedAt))

	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, p user.Pagination) ([]post.Post, error) {
	return s.queryPosts(ctx, "posts.list",
		`SELECT id, title, body, user_id, created_at FROM posts ORDER BY id ASC LIMIT ? OFFSET ?`,
		p.Limit(), p.Offset(),
	)
}

// PostsByUser returns the newest posts of a user first; last <= 0 means all.
func (s *Store) PostsByUser(ctx context.Context, userID int64, last int) ([]post.Post, error) {
	// LIMIT -1 is "no limit" in SQLite
	if last <= 0 {
		last = -1
	}

	return s.queryPosts(ctx, "posts.by_user",
		`SELECT id, title, body, user_id, created_at FROM posts WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, last,
	)
}

func (s *Store) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User
	found := true

	err := s.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(s.sqlDB.QueryRowContext(ctx, query, arg))
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if !found {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (s *Store) queryPosts(ctx context.Context, op, query string, args ...any) ([]post.Post, error) {
	out := []post.Post{}

	err := s.prom.ObserveDB(op, func() error {
		rows, err := s.sqlDB.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p post.Post
			var created int64
			if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.UserID, &created); err != nil {
				return err
			}
			p.CreatedAt = fromMillis(created)
			out = append(out, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (user.User, error) {
	var u user.User
	var role string
	var created, updated int64

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Age, &role, &u.IsActive, &created, &updated)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)

	return u, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}

	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
