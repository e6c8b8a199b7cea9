package admin

import (
	"errors"

	"restoran-api/internal/assignment"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// fiberError turns directory and assignment errors into HTTP errors. Unknown
// errors pass through and end up as 500s.
func fiberError(err error) error {
	var fe *assignment.ForbiddenError
	switch {
	case errors.As(err, &fe):
		return fiber.NewError(fiber.StatusForbidden, fe.Reason)
	case errors.Is(err, store.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrBranchNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Branch not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
	case errors.Is(err, store.ErrDuplicateName):
		return fiber.NewError(fiber.StatusBadRequest, "Branch name already exists")
	case errors.Is(err, assignment.ErrCapacityExceeded):
		return fiber.NewError(fiber.StatusBadRequest, "Branch already has maximum number of admins (7)")
	case errors.Is(err, assignment.ErrNoAssociation):
		return fiber.NewError(fiber.StatusBadRequest, "User is not assigned to any branch")
	case errors.Is(err, assignment.ErrInvalidRole):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid role specified")
	case errors.Is(err, assignment.ErrNotAssignable):
		return fiber.NewError(fiber.StatusBadRequest, "Only staff or admin can be assigned to a branch")
	}
	return err
}

// requireBranchAccess limits branch admins to their own branch.
func requireBranchAccess(actor *models.User, branchID uuid.UUID) error {
	if actor.Role == models.RoleAdmin && !actor.InBranch(branchID) {
		return fiber.NewError(fiber.StatusForbidden, "Admins can only access their own branch")
	}
	return nil
}
