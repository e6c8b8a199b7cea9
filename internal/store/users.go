package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restoran-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFilter struct {
	Role     models.UserRole // empty matches every role
	BranchID *uuid.UUID
	Search   string // case-insensitive substring of full name or email
}

type UserSort struct {
	Field string // createdAt, updatedAt, fullName, email, role
	Order string // asc or desc
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"fullName":  "full_name",
	"email":     "email",
	"role":      "role",
}

func (s UserSort) clause() string {
	col, ok := userSortColumns[s.Field]
	if !ok {
		col = "created_at"
	}
	if strings.EqualFold(s.Order, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *UserStore) WithTx(tx *gorm.DB) *UserStore {
	return &UserStore{db: tx}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return ErrDuplicateEmail
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Lock loads the user row with FOR UPDATE where supported. Engine operations
// take it before the branch lock.
func (s *UserStore) Lock(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := forUpdate(s.db.WithContext(ctx)).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (s *UserStore) filtered(ctx context.Context, f UserFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := containsPattern(search)
		q = q.Where(`(LOWER(full_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, p, p)
	}
	return q
}

func (s *UserStore) Count(ctx context.Context, f UserFilter) (int64, error) {
	var n int64
	if err := s.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) List(ctx context.Context, f UserFilter, page Page, sort UserSort) ([]models.User, Pagination, error) {
	page = page.Normalize()

	total, err := s.Count(ctx, f)
	if err != nil {
		return nil, Pagination{}, err
	}

	users := make([]models.User, 0, page.Limit)
	if err := s.filtered(ctx, f).
		Order(sort.clause()).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, NewPagination(total, page), nil
}

// Update patches the given columns and returns the stored user.
func (s *UserStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return u, nil
	}

	if email, ok := fields["email"].(string); ok {
		email = NormalizeEmail(email)
		fields["email"] = email
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", email, id).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			return nil, ErrDuplicateEmail
		}
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(fields).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
