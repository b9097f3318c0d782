package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/usergraph/internal/domain/post"
	"github.com/geocoder89/usergraph/internal/domain/user"
)

// Store keeps users and posts in maps. Email uniqueness is checked and
// claimed under the same lock, so concurrent creates cannot both win.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]user.User
	byEmail map[string]int64

	nextPostID int64
	posts      map[int64]post.Post
}

func NewStore() *Store {
	return &Store{
		users:   make(map[int64]user.User),
		byEmail: make(map[string]int64),
		posts:   make(map[int64]post.Post),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Create(ctx context.Context, acct user.NewAccount) (user.User, error) {
	if err := acct.Validate(); err != nil {
		return user.User{}, err
	}

	u := acct.Build(time.Now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID

	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return s.users[id], nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (s *Store) List(ctx context.Context, p user.Pagination) ([]user.User, error) {
	s.mu.RLock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return page(out, p), nil
}

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return post.Post{}, user.ErrNotFound
	}

	s.nextPostID++
	p.ID = s.nextPostID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.posts[p.ID] = p

	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, p user.Pagination) ([]post.Post, error) {
	return page(s.sortedPosts(func(post.Post) bool { return true }), p), nil
}

// PostsByUser returns the newest posts of a user first; last <= 0 means all.
func (s *Store) PostsByUser(ctx context.Context, userID int64, last int) ([]post.Post, error) {
	all := s.sortedPosts(func(p post.Post) bool { return p.UserID == userID })

	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	if last > 0 && last < len(all) {
		all = all[:last]
	}

	return all, nil
}

func (s *Store) sortedPosts(keep func(post.Post) bool) []post.Post {
	s.mu.RLock()
	out := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func page[T any](items []T, p user.Pagination) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}

	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
