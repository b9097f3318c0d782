package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/usergraph/internal/accounts"
	"github.com/geocoder89/usergraph/internal/auth"
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/go-playground/validator/v10"
)

const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeBadUserInput       = "BAD_USER_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver error whose code is sent to clients under
// extensions.code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Extensions satisfies gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// toClientError maps domain errors onto client errors. Anything unexpected
// is logged and replaced with a generic internal error.
func toClientError(ctx context.Context, log *slog.Logger, op string, err error) error {
	var validationErrs validator.ValidationErrors

	switch {
	case err == nil:
		return nil
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return &Error{Code: CodeInvalidCredentials, Message: "Invalid Credentials"}
	case errors.Is(err, accounts.ErrDuplicateEmail):
		return &Error{Code: CodeDuplicateEmail, Message: "The email you entered is duplicate"}
	case errors.Is(err, auth.ErrUnauthorized):
		return &Error{Code: CodeUnauthorized, Message: "UNAUTHORIZED"}
	case errors.Is(err, user.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "user not found"}
	case errors.As(err, &validationErrs):
		return &Error{Code: CodeBadUserInput, Message: validationMessage(validationErrs)}
	default:
		log.ErrorContext(ctx, "resolver_failed", "op", op, "err", err)
		return &Error{Code: CodeInternal, Message: "internal server error"}
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid input"
	}

	fe := errs[0]
	field := lowerFirst(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte", "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " failed " + fe.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
