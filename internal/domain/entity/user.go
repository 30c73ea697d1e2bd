// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a unique account.
type User struct {
	ID           uuid.UUID           // Assigned by the store on creation.
	Email        string              // Unique, always stored normalized (see NormalizeEmail).
	PasswordHash string              // Empty for accounts created through a federated provider.
	Name         string              // Display name.
	Role         Role                // Never client-settable.
	ProviderIDs  map[Provider]string // At most one linked id per provider.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with local credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ProviderID returns the id linked for the given provider, if any.
func (u *User) ProviderID(provider Provider) (string, bool) {
	id, ok := u.ProviderIDs[provider]

	return id, ok && id != ""
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an email so that lookups and the
// uniqueness constraint agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultNameFromEmail derives a display name from the local part of an email.
func DefaultNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")

	return local
}
