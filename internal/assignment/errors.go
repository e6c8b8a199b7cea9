package assignment

import (
	"errors"

	"restoran-api/internal/models"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidRole      = models.ErrInvalidRole
	ErrNotAssignable    = errors.New("only staff or admin can be assigned to a branch")
	ErrCapacityExceeded = errors.New("branch already has maximum number of admins (7)")
	ErrNoAssociation    = errors.New("user is not assigned to any branch")
)

// ForbiddenError is a rule violation by the acting user. It matches
// ErrForbidden with errors.Is.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbid(reason string) error {
	return &ForbiddenError{Reason: reason}
}
