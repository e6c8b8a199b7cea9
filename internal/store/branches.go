package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"restoran-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultNearbyRadius = 10000.0

type BranchStore struct {
	db *gorm.DB
}

func NewBranchStore(db *gorm.DB) *BranchStore {
	return &BranchStore{db: db}
}

func (s *BranchStore) WithTx(tx *gorm.DB) *BranchStore {
	return &BranchStore{db: tx}
}

// checkUnique rejects a name or email already used by another branch.
func (s *BranchStore) checkUnique(ctx context.Context, name, email string, except uuid.UUID) error {
	q := s.db.WithContext(ctx).Model(&models.Branch{})
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}

	if name != "" {
		var n int64
		if err := q.Session(&gorm.Session{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&n).Error; err != nil {
			return fmt.Errorf("check branch name: %w", err)
		}
		if n > 0 {
			return ErrDuplicateName
		}
	}
	if email != "" {
		var n int64
		if err := q.Session(&gorm.Session{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("check branch email: %w", err)
		}
		if n > 0 {
			return ErrDuplicateEmail
		}
	}
	return nil
}

func (s *BranchStore) Create(ctx context.Context, b *models.Branch) error {
	b.Email = NormalizeEmail(b.Email)
	if err := s.checkUnique(ctx, b.Name, b.Email, uuid.Nil); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create branch: %w", err)
	}
	b.Admins, b.Staff = []uuid.UUID{}, []uuid.UUID{}
	return nil
}

func (s *BranchStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("find branch: %w", err)
	}
	if err := s.loadMembers(ctx, []*models.Branch{&b}); err != nil {
		return nil, err
	}
	return &b, nil
}

// Lock loads the branch row with FOR UPDATE on dialects that support it so
// that concurrent membership changes on the same branch are serialised.
func (s *BranchStore) Lock(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	if err := forUpdate(s.db.WithContext(ctx)).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("lock branch: %w", err)
	}
	return &b, nil
}

func (s *BranchStore) List(ctx context.Context, search string, page Page) ([]models.Branch, Pagination, error) {
	page = page.Normalize()

	q := s.db.WithContext(ctx).Model(&models.Branch{})
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(search))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count branches: %w", err)
	}

	branches := make([]models.Branch, 0, page.Limit)
	if err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&branches).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list branches: %w", err)
	}

	ptrs := make([]*models.Branch, len(branches))
	for i := range branches {
		ptrs[i] = &branches[i]
	}
	if err := s.loadMembers(ctx, ptrs); err != nil {
		return nil, Pagination{}, err
	}
	return branches, NewPagination(total, page), nil
}

// Update patches the given columns. Membership lists are not patchable here.
func (s *BranchStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Branch, error) {
	b, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return b, nil
	}

	name, _ := fields["name"].(string)
	email, _ := fields["email"].(string)
	if email != "" {
		email = NormalizeEmail(email)
		fields["email"] = email
	}
	if err := s.checkUnique(ctx, name, email, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(b).Updates(fields).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update branch: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Delete removes the branch and unaffiliates every user that pointed at it.
func (s *BranchStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Branch{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete branch: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrBranchNotFound
		}
		if err := tx.Where("branch_id = ?", id).Delete(&models.BranchMember{}).Error; err != nil {
			return fmt.Errorf("delete branch members: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("branch_id = ?", id).
			Update("branch_id", nil).Error; err != nil {
			return fmt.Errorf("unaffiliate branch users: %w", err)
		}
		return nil
	})
}

func (s *BranchStore) loadMembers(ctx context.Context, branches []*models.Branch) error {
	if len(branches) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(branches))
	byID := make(map[uuid.UUID]*models.Branch, len(branches))
	for i, b := range branches {
		ids[i] = b.ID
		byID[b.ID] = b
		b.Admins, b.Staff = []uuid.UUID{}, []uuid.UUID{}
	}

	var members []models.BranchMember
	if err := s.db.WithContext(ctx).
		Where("branch_id IN ?", ids).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return fmt.Errorf("load branch members: %w", err)
	}
	for _, m := range members {
		b := byID[m.BranchID]
		switch m.Kind {
		case models.MemberAdmin:
			b.Admins = append(b.Admins, m.UserID)
		case models.MemberStaff:
			b.Staff = append(b.Staff, m.UserID)
		}
	}
	return nil
}

// AddMember is a set-add: an existing entry is left untouched.
func (s *BranchStore) AddMember(ctx context.Context, branchID, userID uuid.UUID, kind models.MemberKind) error {
	m := models.BranchMember{BranchID: branchID, UserID: userID, Kind: kind}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return fmt.Errorf("add branch member: %w", err)
	}
	return nil
}

// RemoveMember drops the user from every list of every branch.
func (s *BranchStore) RemoveMember(ctx context.Context, userID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BranchMember{}).Error; err != nil {
		return fmt.Errorf("remove branch member: %w", err)
	}
	return nil
}

func (s *BranchStore) CountMembers(ctx context.Context, branchID uuid.UUID, kind models.MemberKind) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.BranchMember{}).
		Where("branch_id = ? AND kind = ?", branchID, kind).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count branch members: %w", err)
	}
	return n, nil
}

func (s *BranchStore) IsMember(ctx context.Context, branchID, userID uuid.UUID, kind models.MemberKind) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.BranchMember{}).
		Where("branch_id = ? AND user_id = ? AND kind = ?", branchID, userID, kind).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check branch member: %w", err)
	}
	return n > 0, nil
}

// Members returns every membership row; used by the reconciler.
func (s *BranchStore) Members(ctx context.Context) ([]models.BranchMember, error) {
	var members []models.BranchMember
	if err := s.db.WithContext(ctx).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list branch members: %w", err)
	}
	return members, nil
}

func (s *BranchStore) DeleteMember(ctx context.Context, m models.BranchMember) error {
	if err := s.db.WithContext(ctx).
		Where("branch_id = ? AND user_id = ? AND kind = ?", m.BranchID, m.UserID, m.Kind).
		Delete(&models.BranchMember{}).Error; err != nil {
		return fmt.Errorf("delete branch member: %w", err)
	}
	return nil
}

type NearbyBranch struct {
	models.Branch
	Distance float64 `json:"distance"` // meters
}

// Nearby returns branches within maxDistance meters of the point, nearest first.
func (s *BranchStore) Nearby(ctx context.Context, lng, lat, maxDistance float64) ([]NearbyBranch, error) {
	if maxDistance <= 0 {
		maxDistance = DefaultNearbyRadius
	}

	box := boundingBox(lng, lat, maxDistance)
	q := s.db.WithContext(ctx).Model(&models.Branch{}).
		Where("latitude BETWEEN ? AND ?", box.minLat, box.maxLat)
	if !box.allLng {
		q = q.Where("longitude BETWEEN ? AND ?", box.minLng, box.maxLng)
	}

	var candidates []models.Branch
	if err := q.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("nearby branches: %w", err)
	}

	out := make([]NearbyBranch, 0, len(candidates))
	for _, b := range candidates {
		d := Haversine(lng, lat, b.Coordinates.Longitude, b.Coordinates.Latitude)
		if d <= maxDistance {
			out = append(out, NearbyBranch{Branch: b, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	ptrs := make([]*models.Branch, len(out))
	for i := range out {
		ptrs[i] = &out[i].Branch
	}
	if err := s.loadMembers(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}
