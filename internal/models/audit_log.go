package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionDelete       AuditAction = "delete"
	AuditActionAssignBranch AuditAction = "assign_branch"
	AuditActionRemoveBranch AuditAction = "remove_branch"
	AuditActionUpdateRole   AuditAction = "update_role"
	AuditActionToggleStatus AuditAction = "toggle_status"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	BranchID *uuid.UUID `gorm:"type:uuid;index" json:"branchId"`

	// Acting user; name is denormalised so entries survive user deletion.
	UserID   uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	UserName string    `gorm:"size:100" json:"userName"`

	EntityType string    `gorm:"size:50;index" json:"entityType"`
	EntityID   uuid.UUID `gorm:"type:uuid;index" json:"entityId"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:text" json:"beforeData"`
	AfterData  string `gorm:"type:text" json:"afterData"`
}
