package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/geocoder89/usergraph/internal/accounts"
	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/geocoder89/usergraph/internal/domain/post"
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/graphql-go/graphql"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (accounts.LoginResult, error)
	Register(ctx context.Context, email, name, password string) (accounts.RegisterResult, error)
}

type UserQueries interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context, p user.Pagination) ([]user.User, error)
}

type PostQueries interface {
	ListPosts(ctx context.Context, p user.Pagination) ([]post.Post, error)
	PostsByUser(ctx context.Context, userID int64, last int) ([]post.Post, error)
}

type Resolver struct {
	auth  Authenticator
	users UserQueries
	posts PostQueries
	log   *slog.Logger
}

func NewResolver(a Authenticator, users UserQueries, posts PostQueries, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{auth: a, users: users, posts: posts, log: log}
}

type registerPayload struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message"`
}

type loginPayload struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message"`
	Token     string `json:"token"`
}

func (r *Resolver) fail(p graphql.ResolveParams, err error) (interface{}, error) {
	return nil, toClientError(p.Context, r.log, p.Info.FieldName, err)
}

// Mutations

func (r *Resolver) register(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	name, _ := p.Args["name"].(string)
	password, _ := p.Args["password"].(string)

	res, err := r.auth.Register(p.Context, email, name, password)
	if err != nil {
		return r.fail(p, err)
	}

	return registerPayload{IsSuccess: res.Success, Message: res.Message}, nil
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	res, err := r.auth.Login(p.Context, email, password)
	if err != nil {
		return r.fail(p, err)
	}

	return loginPayload{IsSuccess: res.Success, Message: res.Message, Token: res.Token}, nil
}

// Queries

func (r *Resolver) helloWorld(graphql.ResolveParams) (interface{}, error) {
	return "Hello World", nil
}

func (r *Resolver) profile(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireAuthenticated(p.Context)
	if err != nil {
		return r.fail(p, err)
	}

	u, err := r.users.GetByEmail(p.Context, id.Email)
	if err != nil {
		// account removed after the token was issued
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return r.fail(p, err)
	}

	return u, nil
}

func (r *Resolver) getUsers(p graphql.ResolveParams) (interface{}, error) {
	if _, err := auth.RequireAuthenticated(p.Context); err != nil {
		return r.fail(p, err)
	}

	page, err := paginationArg(p)
	if err != nil {
		return r.fail(p, err)
	}

	users, err := r.users.List(p.Context, page)
	if err != nil {
		return r.fail(p, err)
	}

	return users, nil
}

func (r *Resolver) getPosts(p graphql.ResolveParams) (interface{}, error) {
	if _, err := auth.RequireAuthenticated(p.Context); err != nil {
		return r.fail(p, err)
	}

	page, err := paginationArg(p)
	if err != nil {
		return r.fail(p, err)
	}

	posts, err := r.posts.ListPosts(p.Context, page)
	if err != nil {
		return r.fail(p, err)
	}

	return posts, nil
}

func (r *Resolver) getUserByID(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["userId"].(int)

	u, err := r.users.GetByID(p.Context, int64(id))
	if err != nil {
		return r.fail(p, err)
	}

	return u, nil
}

// Field resolvers

func (r *Resolver) userPosts(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(user.User)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T", p.Source)
	}

	last, _ := p.Args["last"].(int)

	posts, err := r.posts.PostsByUser(p.Context, u.ID, last)
	if err != nil {
		return r.fail(p, err)
	}

	return posts, nil
}

func userID(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(user.User)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T", p.Source)
	}
	return strconv.FormatInt(u.ID, 10), nil
}

func userRole(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(user.User)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T", p.Source)
	}
	if u.Role == "" {
		return string(user.RoleUser), nil
	}
	return string(u.Role), nil
}

func postID(p graphql.ResolveParams) (interface{}, error) {
	pst, ok := p.Source.(post.Post)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T", p.Source)
	}
	return strconv.FormatInt(pst.ID, 10), nil
}

func paginationArg(p graphql.ResolveParams) (user.Pagination, error) {
	raw, _ := p.Args["pagination"].(map[string]interface{})

	page, _ := raw["page"].(int)
	count, _ := raw["count"].(int)

	pg := user.Pagination{Page: page, Count: count}
	if err := pg.Validate(); err != nil {
		return user.Pagination{}, err
	}

	return pg, nil
}
