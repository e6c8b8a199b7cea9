package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleStaff      UserRole = "staff"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

var ErrInvalidRole = errors.New("invalid role specified")

// ParseRole is the only way a role enters the system from user input.
func ParseRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleStaff, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

func (r UserRole) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// MemberKind returns the branch list a user with this role belongs to.
func (r UserRole) MemberKind() (MemberKind, bool) {
	switch r {
	case RoleAdmin:
		return MemberAdmin, true
	case RoleStaff:
		return MemberStaff, true
	}
	return "", false
}

type Phone struct {
	Code   string `gorm:"size:8" json:"code"`
	Number string `gorm:"size:20" json:"number"`
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"_id"`
	FullName     string     `gorm:"size:100;not null" json:"fullName"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Phone        Phone      `gorm:"embedded;embeddedPrefix:phone_" json:"phone"`
	Address      string     `gorm:"size:255" json:"address"`
	Role         UserRole   `gorm:"size:20;not null;default:customer;index" json:"role"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index" json:"branch"`
	ProfilePic   string     `gorm:"size:500" json:"profilePic"`
	IsActive     bool       `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// InBranch reports whether the user is affiliated with the given branch.
func (u *User) InBranch(branchID uuid.UUID) bool {
	return u.BranchID != nil && *u.BranchID == branchID
}
