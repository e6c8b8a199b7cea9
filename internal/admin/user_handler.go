package admin

import (
	"fmt"

	"restoran-api/internal/auth"
	"restoran-api/internal/httpx"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type AssignBranchRequest struct {
	BranchID string `json:"branchId" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

// GET /api/users?page=1&limit=10&role=staff&search=ann&sort=createdAt&order=desc
func (h *Handler) ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := store.UserFilter{Search: c.Query("search")}
		if r := c.Query("role"); r != "" {
			role, err := models.ParseRole(r)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid role specified")
			}
			filter.Role = role
		}

		page := store.Page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", store.DefaultLimit)}
		sort := store.UserSort{Field: c.Query("sort", "createdAt"), Order: c.Query("order", "desc")}

		users, pagination, err := h.users.List(c.UserContext(), filter, page, sort)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"count":      len(users),
			"data":       users,
			"pagination": pagination,
		})
	}
}

func (h *Handler) GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid user ID")
		if err != nil {
			return err
		}

		user, err := h.users.FindByID(c.UserContext(), id)
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    user,
		})
	}
}

func (h *Handler) DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid user ID")
		if err != nil {
			return err
		}

		if err := h.engine.DeleteUser(c.UserContext(), auth.CurrentUser(c), id); err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "User deleted successfully",
		})
	}
}

func (h *Handler) ToggleUserStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid user ID")
		if err != nil {
			return err
		}

		user, err := h.engine.ToggleActive(c.UserContext(), auth.CurrentUser(c), id)
		if err != nil {
			return fiberError(err)
		}

		state := "suspended"
		if user.IsActive {
			state = "activated"
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "User account has been " + state,
			"isActive": user.IsActive,
			"user":     user,
		})
	}
}

func (h *Handler) UpdateUserRoleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid user ID")
		if err != nil {
			return err
		}

		var body UpdateRoleRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		user, err := h.engine.UpdateRole(c.UserContext(), auth.CurrentUser(c), id, body.Role)
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("User role updated to %s", user.Role),
			"user":    user,
		})
	}
}

func (h *Handler) AssignBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AssignBranchRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		userID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid user or branch ID")
		}
		branchID, err := uuid.Parse(body.BranchID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid user or branch ID")
		}

		role, err := models.ParseRole(body.Role)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid role specified")
		}

		user, err := h.engine.AssignBranch(c.UserContext(), auth.CurrentUser(c), userID, branchID, role)
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Assigned %s to branch", role),
			"user":    user,
		})
	}
}

func (h *Handler) RemoveBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid user ID")
		if err != nil {
			return err
		}

		user, err := h.engine.RemoveBranch(c.UserContext(), auth.CurrentUser(c), id)
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Branch unassigned from %s", user.FullName),
			"branch":  nil,
		})
	}
}
