package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/usergraph/internal/domain/post"
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/geocoder89/usergraph/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err := r.prom.ObserveDB("posts.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO posts (title, body, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			p.Title, p.Body, p.UserID, p.CreatedAt,
		).Scan(&p.ID)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		// foreign_key_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return post.Post{}, user.ErrNotFound
		}
		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) ListPosts(ctx context.Context, p user.Pagination) ([]post.Post, error) {
	return r.query(ctx, "posts.list",
		`SELECT id, title, body, user_id, created_at FROM posts ORDER BY id ASC LIMIT $1 OFFSET $2`,
		p.Limit(), p.Offset(),
	)
}

// PostsByUser returns the newest posts of a user first; last <= 0 means all.
func (r *PostsRepo) PostsByUser(ctx context.Context, userID int64, last int) ([]post.Post, error) {
	if last <= 0 {
		return r.query(ctx, "posts.by_user",
			`SELECT id, title, body, user_id, created_at FROM posts WHERE user_id = $1 ORDER BY id DESC`,
			userID,
		)
	}

	return r.query(ctx, "posts.by_user",
		`SELECT id, title, body, user_id, created_at FROM posts WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, last,
	)
}

func (r *PostsRepo) query(ctx context.Context, op, sql string, args ...any) ([]post.Post, error) {
	out := []post.Post{}

	err := r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (post.Post, error) {
			var p post.Post
			err := row.Scan(&p.ID, &p.Title, &p.Body, &p.UserID, &p.CreatedAt)
			return p, err
		})
		return err
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
