package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EntityUser   = "user"
	EntityBranch = "branch"
)

type LogOptions struct {
	BranchID    *uuid.UUID
	Actor       *models.User
	EntityType  string
	EntityID    uuid.UUID
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// WriteLog records an entry using db, which may be a transaction so that the
// entry commits or rolls back together with the change it describes.
func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	if opts.Actor != nil {
		entry.UserID = opts.Actor.ID
		entry.UserName = opts.Actor.FullName
	}

	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	BranchID   *uuid.UUID
	UserID     *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Action     models.AuditAction
}

func List(ctx context.Context, db *gorm.DB, f Filter, page store.Page) ([]models.AuditLog, store.Pagination, error) {
	page = page.Normalize()

	q := db.WithContext(ctx).Model(&models.AuditLog{})
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		q = q.Where("entity_id = ?", *f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, store.Pagination{}, fmt.Errorf("count audit logs: %w", err)
	}

	logs := make([]models.AuditLog, 0, page.Limit)
	if err := q.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&logs).Error; err != nil {
		return nil, store.Pagination{}, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, store.NewPagination(total, page), nil
}
