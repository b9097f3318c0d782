package user

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleGuest Role = "GUEST"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewAccount is the creation request handed to a store. It only carries the
// password hash; there is no field a plaintext password could end up in.
type NewAccount struct {
	Email        string `validate:"required,email"`
	Name         string `validate:"max=255"`
	PasswordHash string `validate:"required"`
	Role         Role   `validate:"required,oneof=ADMIN USER GUEST"`
	Age          int    `validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the store-side field checks.
func (a NewAccount) Validate() error {
	return validate.Struct(a)
}

// Build turns the request into a User stamped with now.
func (a NewAccount) Build(now time.Time) User {
	return User{
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		Age:          a.Age,
		Role:         a.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

const MaxPageSize = 100

type Pagination struct {
	Page  int `json:"page" validate:"gte=1"`
	Count int `json:"count" validate:"gte=1,lte=100"`
}

func (p Pagination) Validate() error {
	return validate.Struct(p)
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Count
}

func (p Pagination) Limit() int {
	return p.Count
}
