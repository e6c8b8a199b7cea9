package admin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"restoran-api/internal/assignment"
	"restoran-api/internal/audit"
	"restoran-api/internal/auth"
	"restoran-api/internal/httpx"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PhoneRequest struct {
	Code   string `json:"code" validate:"required"`
	Number string `json:"number" validate:"required,phonenumber"`
}

type CreateBranchRequest struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Phone       PhoneRequest     `json:"phone" validate:"required"`
	Address     string           `json:"address" validate:"required"`
	State       string           `json:"state" validate:"required"`
	Coordinates *models.GeoPoint `json:"coordinates" validate:"required"`
	IsActive    *bool            `json:"isActive"`
}

// Admin and staff lists are not patchable here; they follow branch assignment.
type UpdateBranchRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1"`
	Email       *string          `json:"email" validate:"omitempty,email"`
	Phone       *PhoneRequest    `json:"phone" validate:"omitempty"`
	Address     *string          `json:"address" validate:"omitempty,min=1"`
	State       *string          `json:"state" validate:"omitempty,min=1"`
	Coordinates *models.GeoPoint `json:"coordinates"`
	IsActive    *bool            `json:"isActive"`
}

func validPoint(p *models.GeoPoint) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

type Handler struct {
	db       *gorm.DB
	users    *store.UserStore
	branches *store.BranchStore
	engine   *assignment.Service
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:       db,
		users:    store.NewUserStore(db),
		branches: store.NewBranchStore(db),
		engine:   assignment.NewService(db),
	}
}

// ----------------------------------------
// BRANCH CRUD
// ----------------------------------------

func (h *Handler) CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		if !validPoint(body.Coordinates) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		branch := models.Branch{
			Name:        name,
			Email:       body.Email,
			Phone:       models.Phone{Code: strings.TrimSpace(body.Phone.Code), Number: body.Phone.Number},
			Address:     body.Address,
			State:       body.State,
			Coordinates: *body.Coordinates,
			IsActive:    true,
		}
		if body.IsActive != nil {
			branch.IsActive = *body.IsActive
		}

		actor := auth.CurrentUser(c)
		err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := h.branches.WithTx(tx).Create(c.UserContext(), &branch); err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				BranchID:    &branch.ID,
				Actor:       actor,
				EntityType:  audit.EntityBranch,
				EntityID:    branch.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Branch %s created", branch.Name),
				After:       branch,
			})
		})
		if err != nil {
			return fiberError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"data":    branch,
		})
	}
}

func (h *Handler) ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := store.Page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", store.DefaultLimit)}

		branches, pagination, err := h.branches.List(c.UserContext(), c.Query("search"), page)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"data":       branches,
			"pagination": pagination,
		})
	}
}

func (h *Handler) GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid branch ID")
		if err != nil {
			return err
		}
		if err := requireBranchAccess(auth.CurrentUser(c), id); err != nil {
			return err
		}

		branch, err := h.branches.FindByID(c.UserContext(), id)
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    branch,
		})
	}
}

func (h *Handler) UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid branch ID")
		if err != nil {
			return err
		}

		var body UpdateBranchRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		fields := map[string]any{}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name is required")
			}
			fields["name"] = name
		}
		if body.Email != nil {
			fields["email"] = *body.Email
		}
		if body.Phone != nil {
			fields["phone_code"] = strings.TrimSpace(body.Phone.Code)
			fields["phone_number"] = body.Phone.Number
		}
		if body.Address != nil {
			fields["address"] = *body.Address
		}
		if body.State != nil {
			fields["state"] = *body.State
		}
		if body.Coordinates != nil {
			if !validPoint(body.Coordinates) {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
			}
			fields["longitude"] = body.Coordinates.Longitude
			fields["latitude"] = body.Coordinates.Latitude
		}
		if body.IsActive != nil {
			fields["is_active"] = *body.IsActive
		}

		var updated *models.Branch
		err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			branches := h.branches.WithTx(tx)
			before, err := branches.FindByID(c.UserContext(), id)
			if err != nil {
				return err
			}
			if updated, err = branches.Update(c.UserContext(), id, fields); err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				BranchID:    &id,
				Actor:       auth.CurrentUser(c),
				EntityType:  audit.EntityBranch,
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Branch %s updated", updated.Name),
				Before:      before,
				After:       updated,
			})
		})
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    updated,
		})
	}
}

// DeleteBranchHandler unaffiliates every member of the branch before removing it.
func (h *Handler) DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid branch ID")
		if err != nil {
			return err
		}

		err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			branches := h.branches.WithTx(tx)
			before, err := branches.FindByID(c.UserContext(), id)
			if err != nil {
				return err
			}
			if err := branches.Delete(c.UserContext(), id); err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				BranchID:    &id,
				Actor:       auth.CurrentUser(c),
				EntityType:  audit.EntityBranch,
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Branch %s deleted", before.Name),
				Before:      before,
			})
		})
		if err != nil {
			return fiberError(err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Branch deleted successfully",
		})
	}
}

// ----------------------------------------
// BRANCH USERS
// GET /api/branches/:id/users
// ----------------------------------------

func (h *Handler) ListBranchUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamUUID(c, "id", "Invalid branch ID")
		if err != nil {
			return err
		}
		if err := requireBranchAccess(auth.CurrentUser(c), id); err != nil {
			return err
		}

		filter := store.UserFilter{BranchID: &id, Search: c.Query("search")}
		if r := c.Query("role"); r != "" {
			role, err := models.ParseRole(r)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid role specified")
			}
			filter.Role = role
		}

		page := store.Page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", store.DefaultLimit)}
		users, pagination, err := h.users.List(c.UserContext(), filter, page, store.UserSort{})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"data":       users,
			"pagination": pagination,
		})
	}
}

// ----------------------------------------
// PROXIMITY SEARCH
// GET /api/branches/nearby?lat=6.5&lng=3.3[&maxDistance=10000]
// ----------------------------------------

func parseCoordinate(raw string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}

func (h *Handler) NearbyBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		latRaw, lngRaw := c.Query("lat"), c.Query("lng")
		if latRaw == "" || lngRaw == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Latitude and longitude are required")
		}

		lat, okLat := parseCoordinate(latRaw, 90)
		lng, okLng := parseCoordinate(lngRaw, 180)
		if !okLat || !okLng {
			return fiber.NewError(fiber.StatusBadRequest, "Latitude and longitude must be valid numbers")
		}

		maxDistance := store.DefaultNearbyRadius
		if raw := c.Query("maxDistance"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 || math.IsInf(v, 0) {
				return fiber.NewError(fiber.StatusBadRequest, "maxDistance must be a positive number")
			}
			maxDistance = v
		}

		branches, err := h.branches.Nearby(c.UserContext(), lng, lat, maxDistance)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"count":   len(branches),
			"data":    branches,
		})
	}
}
