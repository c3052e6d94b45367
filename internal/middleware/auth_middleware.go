package middleware

import (
	"context"
	"log/slog"
	"strings"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUser    = "user"
	LocalSession = "session"
)

type BearerValidator interface {
	ValidateBearer(ctx context.Context, token string) (*model.User, *model.Session, error)
}

type PermissionChecker interface {
	Check(ctx context.Context, user *model.User, code string) error
}

// RequireAuth validates the bearer session token, sliding its inactivity
// window, and stores the user and session in Locals.
func RequireAuth(auth BearerValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fail(c, apperr.Unauthenticated("missing authorization token"))
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return fail(c, apperr.Unauthenticated("invalid authorization format, use: Bearer <token>"))
		}

		user, session, err := auth.ValidateBearer(c.UserContext(), parts[1])
		if err != nil {
			return fail(c, err)
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalSession, session)
		return c.Next()
	}
}

// RequirePermission checks code against the user's current grants on every request.
func RequirePermission(perms PermissionChecker, code string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := perms.Check(c.UserContext(), CurrentUser(c), code); err != nil {
			return fail(c, err)
		}
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(LocalUser).(*model.User)
	return user
}

func CurrentSession(c *fiber.Ctx) *model.Session {
	session, _ := c.Locals(LocalSession).(*model.Session)
	return session
}

func fail(c *fiber.Ctx, err error) error {
	status := apperr.StatusCode(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
}
