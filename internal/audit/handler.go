package audit

import (
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func optionalUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key)
	}
	return &id, nil
}

// GET /api/audit-logs?entity_type=user&entity_id=...&user_id=...&branch_id=...&action=...
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			f   Filter
			err error
		)
		if f.BranchID, err = optionalUUID(c, "branch_id"); err != nil {
			return err
		}
		if f.UserID, err = optionalUUID(c, "user_id"); err != nil {
			return err
		}
		if f.EntityID, err = optionalUUID(c, "entity_id"); err != nil {
			return err
		}
		f.EntityType = c.Query("entity_type")
		f.Action = models.AuditAction(c.Query("action"))

		page := store.Page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", 20)}
		logs, pagination, err := List(c.UserContext(), db, f, page)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"data":       logs,
			"pagination": pagination,
		})
	}
}
