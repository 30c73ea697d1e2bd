// Package policy decides whether an authenticated caller may use a protected route.
package policy

import (
	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"

	"github.com/google/uuid"
)

// Caller is the authenticated principal, with the role as currently stored.
type Caller struct {
	ID   uuid.UUID
	Role entity.Role
}

// Authorize returns nil when caller may act at the given level on targetID,
// and domainerrors.ErrForbidden otherwise. targetID is only read for PermissionLoggedUser.
func Authorize(level entity.Permission, caller Caller, targetID uuid.UUID) error {
	switch level {
	case entity.PermissionLogged:
		return nil
	case entity.PermissionLoggedUser:
		if caller.Role == entity.RoleAdmin || (caller.ID != uuid.Nil && caller.ID == targetID) {
			return nil
		}

		return domainerrors.ErrForbidden
	case entity.PermissionAdmin:
		if caller.Role == entity.RoleAdmin {
			return nil
		}

		return domainerrors.ErrForbidden
	default:
		// Unknown levels fail closed.
		return domainerrors.ErrForbidden
	}
}
