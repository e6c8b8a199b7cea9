package jobs

import (
	"context"
	"fmt"

	"restoran-api/internal/logger"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Report struct {
	Removed      int // list entries that no longer matched their user
	Added        int // list entries recreated for affiliated admins/staff
	Unaffiliated int // users pointing at a branch that no longer exists
	Skipped      int // admins left out because the branch list was full
}

// Reconciler repairs drift between user affiliations and branch admin/staff
// lists, e.g. rows written before the lists were maintained transactionally.
type Reconciler struct {
	db *gorm.DB
}

type memberKey struct {
	branchID uuid.UUID
	userID   uuid.UUID
	kind     models.MemberKind
}

// matches reports whether the list entry agrees with the user's affiliation and role.
func matches(u *models.User, m models.BranchMember) bool {
	if u == nil || u.BranchID == nil || *u.BranchID != m.BranchID {
		return false
	}
	kind, ok := u.Role.MemberKind()
	return ok && kind == m.Kind
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		branches := store.NewBranchStore(tx)

		var branchIDs []uuid.UUID
		if err := tx.Model(&models.Branch{}).Pluck("id", &branchIDs).Error; err != nil {
			return fmt.Errorf("load branch ids: %w", err)
		}
		existing := make(map[uuid.UUID]bool, len(branchIDs))
		for _, id := range branchIDs {
			existing[id] = true
		}

		var users []models.User
		if err := tx.Where("branch_id IS NOT NULL").Find(&users).Error; err != nil {
			return fmt.Errorf("load affiliated users: %w", err)
		}
		byID := make(map[uuid.UUID]*models.User, len(users))
		for i := range users {
			u := &users[i]
			if !existing[*u.BranchID] {
				if err := tx.Model(u).Update("branch_id", nil).Error; err != nil {
					return fmt.Errorf("unaffiliate user: %w", err)
				}
				rep.Unaffiliated++
				continue
			}
			byID[u.ID] = u
		}

		members, err := branches.Members(ctx)
		if err != nil {
			return err
		}
		present := make(map[memberKey]bool, len(members))
		for _, m := range members {
			if matches(byID[m.UserID], m) {
				present[memberKey{m.BranchID, m.UserID, m.Kind}] = true
				continue
			}
			if err := branches.DeleteMember(ctx, m); err != nil {
				return err
			}
			rep.Removed++
		}

		for _, u := range users {
			if byID[u.ID] == nil {
				continue
			}
			kind, ok := u.Role.MemberKind()
			if !ok || present[memberKey{*u.BranchID, u.ID, kind}] {
				continue
			}
			if kind == models.MemberAdmin {
				n, err := branches.CountMembers(ctx, *u.BranchID, kind)
				if err != nil {
					return err
				}
				if n >= models.MaxBranchAdmins {
					logger.Warn("branch admin list full, not re-adding admin", "branch_id", *u.BranchID, "user_id", u.ID)
					rep.Skipped++
					continue
				}
			}
			if err := branches.AddMember(ctx, *u.BranchID, u.ID, kind); err != nil {
				return err
			}
			rep.Added++
		}
		return nil
	})
	return rep, err
}
