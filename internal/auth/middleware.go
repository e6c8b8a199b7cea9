package auth

import (
	"errors"
	"strings"

	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
)

const CtxUserKey = "user"

const SuspendedMessage = "Your account has been suspended. Contact support."

// Authenticate resolves the bearer token to an active user and stores it in
// the request locals. Requests that fail never reach the next handler.
func Authenticate(tokens *TokenManager, users *store.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - No token provided")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Authorization format must be 'Bearer <token>'")
		}

		userID, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid token")
		}

		user, err := users.FindByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}

		if !user.IsActive {
			return fiber.NewError(fiber.StatusForbidden, SuspendedMessage)
		}

		c.Locals(CtxUserKey, user)
		return c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - No user found")
		}

		for _, r := range allowedRoles {
			if r == user.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Not authorized, insufficient permissions")
	}
}

// CurrentUser returns the user set by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(CtxUserKey).(*models.User)
	return u
}
