// Package assignment keeps user affiliations and branch admin/staff lists
// consistent. Every operation runs in a single transaction together with its
// audit entry.
package assignment

import (
	"context"
	"errors"
	"fmt"

	"restoran-api/internal/audit"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	users    *store.UserStore
	branches *store.BranchStore
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		users:    store.NewUserStore(db),
		branches: store.NewBranchStore(db),
	}
}

type txStores struct {
	tx       *gorm.DB
	users    *store.UserStore
	branches *store.BranchStore
}

func (s *Service) inTx(ctx context.Context, fn func(t txStores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txStores{tx: tx, users: s.users.WithTx(tx), branches: s.branches.WithTx(tx)})
	})
}

func privileged(r models.UserRole) bool {
	return r == models.RoleAdmin || r == models.RoleSuperAdmin
}

// authorizeAssign applies the actor rules that do not need the database.
func authorizeAssign(actor *models.User, branchID uuid.UUID, role models.UserRole) error {
	if role == models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return forbid("Only superadmin can assign admin role")
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleAdmin:
		if role != models.RoleStaff || !actor.InBranch(branchID) {
			return forbid("Admins can only assign staff to their own branch")
		}
		return nil
	}
	return forbid("Not authorized, insufficient permissions")
}

// guardTarget stops a branch admin from acting on other admins or superadmins.
func guardTarget(actor, target *models.User) error {
	if actor.Role == models.RoleAdmin && privileged(target.Role) && actor.ID != target.ID {
		return forbid("Admins cannot manage other admins")
	}
	return nil
}

// guardScope limits a branch admin to users affiliated with their own branch.
func guardScope(actor, target *models.User) error {
	if actor.Role != models.RoleAdmin {
		return nil
	}
	if target.BranchID == nil || !actor.InBranch(*target.BranchID) {
		return forbid("Admins can only manage users of their own branch")
	}
	return nil
}

// ensureCapacity fails when adding the user would push the branch over the
// admin cap. It must run after the branch row is locked.
func ensureCapacity(ctx context.Context, t txStores, branchID, userID uuid.UUID) error {
	already, err := t.branches.IsMember(ctx, branchID, userID, models.MemberAdmin)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	n, err := t.branches.CountMembers(ctx, branchID, models.MemberAdmin)
	if err != nil {
		return err
	}
	if n >= models.MaxBranchAdmins {
		return ErrCapacityExceeded
	}
	return nil
}

// AssignBranch affiliates the user with the branch under the given role
// (staff or admin), moving them out of any other branch list.
func (s *Service) AssignBranch(ctx context.Context, actor *models.User, userID, branchID uuid.UUID, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	kind, ok := role.MemberKind()
	if !ok {
		return nil, ErrNotAssignable
	}
	if err := authorizeAssign(actor, branchID, role); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.inTx(ctx, func(t txStores) error {
		user, err := t.users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if err := guardTarget(actor, user); err != nil {
			return err
		}
		branch, err := t.branches.Lock(ctx, branchID)
		if err != nil {
			return err
		}

		if kind == models.MemberAdmin {
			if err := ensureCapacity(ctx, t, branchID, userID); err != nil {
				return err
			}
		}

		already, err := t.branches.IsMember(ctx, branchID, userID, kind)
		if err != nil {
			return err
		}
		if !already {
			if err := t.branches.RemoveMember(ctx, userID); err != nil {
				return err
			}
			if err := t.branches.AddMember(ctx, branchID, userID, kind); err != nil {
				return err
			}
		}

		updated, err = t.users.Update(ctx, userID, map[string]any{
			"branch_id": branchID,
			"role":      role,
		})
		if err != nil {
			return err
		}

		return audit.WriteLog(ctx, t.tx, audit.LogOptions{
			BranchID:    &branch.ID,
			Actor:       actor,
			EntityType:  audit.EntityUser,
			EntityID:    userID,
			Action:      models.AuditActionAssignBranch,
			Description: fmt.Sprintf("Assigned %s to branch %s", role, branch.Name),
			Before:      user,
			After:       updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveBranch clears the user's affiliation and drops them from the branch
// lists. The role is left unchanged.
func (s *Service) RemoveBranch(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	var updated *models.User
	err := s.inTx(ctx, func(t txStores) error {
		user, err := t.users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if user.BranchID == nil {
			return ErrNoAssociation
		}
		if err := guardScope(actor, user); err != nil {
			return err
		}
		if err := guardTarget(actor, user); err != nil {
			return err
		}

		branchID := *user.BranchID
		if _, err := t.branches.Lock(ctx, branchID); err != nil && !errors.Is(err, store.ErrBranchNotFound) {
			return err
		}
		if err := t.branches.RemoveMember(ctx, userID); err != nil {
			return err
		}

		updated, err = t.users.Update(ctx, userID, map[string]any{"branch_id": nil})
		if err != nil {
			return err
		}

		return audit.WriteLog(ctx, t.tx, audit.LogOptions{
			BranchID:    &branchID,
			Actor:       actor,
			EntityType:  audit.EntityUser,
			EntityID:    userID,
			Action:      models.AuditActionRemoveBranch,
			Description: fmt.Sprintf("Branch unassigned from %s", user.FullName),
			Before:      user,
			After:       updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleActive flips the user's active flag. Nobody can toggle their own account.
func (s *Service) ToggleActive(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	if actor.ID == userID {
		return nil, forbid("You cannot change the status of your own account")
	}

	var updated *models.User
	err := s.inTx(ctx, func(t txStores) error {
		user, err := t.users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if err := guardTarget(actor, user); err != nil {
			return err
		}

		updated, err = t.users.Update(ctx, userID, map[string]any{"is_active": !user.IsActive})
		if err != nil {
			return err
		}

		state := "suspended"
		if updated.IsActive {
			state = "activated"
		}
		return audit.WriteLog(ctx, t.tx, audit.LogOptions{
			BranchID:    user.BranchID,
			Actor:       actor,
			EntityType:  audit.EntityUser,
			EntityID:    userID,
			Action:      models.AuditActionToggleStatus,
			Description: fmt.Sprintf("User account %s %s", user.FullName, state),
			Before:      user,
			After:       updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateRole overwrites the user's role. An affiliated user's membership row
// follows the new role, so promotion into a full admin list fails. Branch
// admins may only change roles inside their own branch.
func (s *Service) UpdateRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error) {
	role, err := models.ParseRole(roleName)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if privileged(role) && actor.Role != models.RoleSuperAdmin {
		return nil, forbid("Only superadmin can grant admin or superadmin role")
	}

	var updated *models.User
	err = s.inTx(ctx, func(t txStores) error {
		user, err := t.users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if err := guardScope(actor, user); err != nil {
			return err
		}
		if err := guardTarget(actor, user); err != nil {
			return err
		}

		if user.BranchID != nil {
			branchID := *user.BranchID
			if _, err := t.branches.Lock(ctx, branchID); err != nil {
				return err
			}
			kind, member := role.MemberKind()
			if kind == models.MemberAdmin {
				if err := ensureCapacity(ctx, t, branchID, userID); err != nil {
					return err
				}
			}
			if err := t.branches.RemoveMember(ctx, userID); err != nil {
				return err
			}
			if member {
				if err := t.branches.AddMember(ctx, branchID, userID, kind); err != nil {
					return err
				}
			}
		}

		updated, err = t.users.Update(ctx, userID, map[string]any{"role": role})
		if err != nil {
			return err
		}

		return audit.WriteLog(ctx, t.tx, audit.LogOptions{
			BranchID:    user.BranchID,
			Actor:       actor,
			EntityType:  audit.EntityUser,
			EntityID:    userID,
			Action:      models.AuditActionUpdateRole,
			Description: fmt.Sprintf("User role updated to %s", role),
			Before:      user,
			After:       updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes the user and every branch list entry pointing at them.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, userID uuid.UUID) error {
	return s.inTx(ctx, func(t txStores) error {
		user, err := t.users.Lock(ctx, userID)
		if err != nil {
			return err
		}
		if err := t.branches.RemoveMember(ctx, userID); err != nil {
			return err
		}
		if err := t.users.Delete(ctx, userID); err != nil {
			return err
		}

		return audit.WriteLog(ctx, t.tx, audit.LogOptions{
			BranchID:    user.BranchID,
			Actor:       actor,
			EntityType:  audit.EntityUser,
			EntityID:    userID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("User %s deleted", user.Email),
			Before:      user,
		})
	})
}
