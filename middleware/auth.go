package middleware

import (
	"context"
	"strings"

	"contestsphere-server/access"
	appErr "contestsphere-server/pkg/errors"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// TokenVerifier resolves a bearer token to the caller it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (access.Identity, error)
}

// Authenticate resolves the caller from the Authorization header. Requests
// without a header continue as anonymous; a bad token is rejected.
func Authenticate(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			c.Locals(identityKey, access.Anonymous)
			return c.Next()
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return appErr.New(appErr.CodeUnauthorized, "Invalid authorization header")
		}

		id, err := v.Verify(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return err
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Identity(c).Authenticated() {
			return appErr.New(appErr.CodeUnauthorized, "No token, authorization denied")
		}
		return c.Next()
	}
}

// Require gates a route on a capability from the access table.
func Require(action access.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.Require(Identity(c), action); err != nil {
			return err
		}
		return c.Next()
	}
}

// Identity returns the caller attached by Authenticate.
func Identity(c *fiber.Ctx) access.Identity {
	if id, ok := c.Locals(identityKey).(access.Identity); ok {
		return id
	}
	return access.Anonymous
}
