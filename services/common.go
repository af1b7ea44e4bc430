package services

import (
	"errors"
	"math"
	"reflect"
	"strings"

	appErr "contestsphere-server/pkg/errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is the pagination envelope shared by list endpoints.
type Page struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func newPage(total int64, page, limit int) Page {
	return Page{Total: total, Page: page, Pages: int(math.Ceil(float64(total) / float64(limit)))}
}

// isUniqueViolation matches duplicate-key errors from both supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// notFoundOr maps gorm.ErrRecordNotFound to a not-found AppError and anything
// else to an internal one.
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.NotFound(message)
	}
	return appErr.Internal(err, message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and turns the first failure into
// a client-facing validation error.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErr.Wrap(err, appErr.CodeValidation, "Invalid input")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return appErr.Validation(fe.Field() + " is required")
	case "email":
		return appErr.Validation(fe.Field() + " must be a valid email")
	case "min":
		return appErr.Validation(fe.Field() + " must be at least " + fe.Param() + " characters")
	case "max":
		return appErr.Validation(fe.Field() + " must be at most " + fe.Param() + " characters")
	case "gte":
		return appErr.Validation(fe.Field() + " cannot be negative")
	case "url":
		return appErr.Validation(fe.Field() + " must be a valid URL")
	default:
		return appErr.Validation(fe.Field() + " is invalid")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
