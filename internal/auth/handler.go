package auth

import (
	"errors"
	"strings"
	"time"

	"restoran-api/internal/httpx"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
)

const TokenCookie = "jwt"

type PhoneRequest struct {
	Code   string `json:"code" validate:"required"`
	Number string `json:"number" validate:"required,phonenumber"`
}

func (p PhoneRequest) model() models.Phone {
	return models.Phone{Code: strings.TrimSpace(p.Code), Number: p.Number}
}

type RegisterRequest struct {
	FullName string       `json:"fullName" validate:"required"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Phone    PhoneRequest `json:"phone" validate:"required"`
	Address  string       `json:"address" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName   *string       `json:"fullName" validate:"omitempty,min=1"`
	Email      *string       `json:"email" validate:"omitempty,email"`
	Phone      *PhoneRequest `json:"phone" validate:"omitempty"`
	Address    *string       `json:"address"`
	ProfilePic *string       `json:"profilePic" validate:"omitempty,url"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type Handler struct {
	users        *store.UserStore
	tokens       *TokenManager
	cookieSecure bool
}

func NewHandler(users *store.UserStore, tokens *TokenManager, cookieSecure bool) *Handler {
	return &Handler{users: users, tokens: tokens, cookieSecure: cookieSecure}
}

// issue signs a token for the user and also sets it as an HttpOnly cookie.
func (h *Handler) issue(c *fiber.Ctx, user *models.User) (string, error) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		MaxAge:   int(h.tokens.TTL() / time.Second),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return token, nil
}

func (h *Handler) RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			FullName:     strings.TrimSpace(body.FullName),
			Email:        body.Email,
			PasswordHash: hash,
			Phone:        body.Phone.model(),
			Address:      body.Address,
			Role:         models.RoleCustomer,
			IsActive:     true,
		}

		if err := h.users.Create(c.UserContext(), &user); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
			}
			return err
		}

		token, err := h.issue(c, &user)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "User created successfully",
			"token":   token,
			"user":    user,
		})
	}
}

func (h *Handler) LoginHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		user, err := h.users.FindByEmail(c.UserContext(), body.Email)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
			}
			return err
		}

		if !CheckPassword(body.Password, user.PasswordHash) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusForbidden, SuspendedMessage)
		}

		token, err := h.issue(c, user)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Logged in successfully",
			"token":   token,
			"user":    user,
		})
	}
}

func (h *Handler) LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.ClearCookie(TokenCookie)
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Logged out successfully",
		})
	}
}

func (h *Handler) GetProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"user":    CurrentUser(c),
		})
	}
}

func (h *Handler) UpdateProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateProfileRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		fields := map[string]any{}
		if body.FullName != nil {
			if name := strings.TrimSpace(*body.FullName); name != "" {
				fields["full_name"] = name
			}
		}
		if body.Email != nil {
			fields["email"] = *body.Email
		}
		if body.Phone != nil {
			p := body.Phone.model()
			fields["phone_code"] = p.Code
			fields["phone_number"] = p.Number
		}
		if body.Address != nil && *body.Address != "" {
			fields["address"] = *body.Address
		}
		if body.ProfilePic != nil {
			fields["profile_pic"] = *body.ProfilePic
		}

		user, err := h.users.Update(c.UserContext(), CurrentUser(c).ID, fields)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrUserNotFound):
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			case errors.Is(err, store.ErrDuplicateEmail):
				return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
			}
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Profile updated successfully",
			"user":    user,
		})
	}
}

func (h *Handler) UpdatePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdatePasswordRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		// Locals carry the user as loaded by Authenticate, hash included.
		user := CurrentUser(c)
		if !CheckPassword(body.CurrentPassword, user.PasswordHash) {
			return fiber.NewError(fiber.StatusBadRequest, "Current password is incorrect")
		}

		hash, err := HashPassword(body.NewPassword)
		if err != nil {
			return err
		}
		if _, err := h.users.Update(c.UserContext(), user.ID, map[string]any{"password_hash": hash}); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Password updated successfully",
		})
	}
}
