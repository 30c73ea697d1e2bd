// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"notekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a create collides with the unique email index.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrProviderAlreadyLinked is returned when the user already has an id for the provider,
	// or the provider id already belongs to another user.
	ErrProviderAlreadyLinked = errors.New("provider already linked")
)

// UserRepository is the credential store. Emails passed in are expected to be normalized.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their normalized email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByProviderID retrieves the user linked to the given provider account.
	FindByProviderID(ctx context.Context, provider entity.Provider, providerID string) (*entity.User, error)

	// Create persists a new user and assigns its ID and timestamps.
	// It returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *entity.User) error

	// LinkProvider attaches a provider id to an existing user if the user has none for that provider.
	// It returns ErrProviderAlreadyLinked when the slot is taken.
	LinkProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider, providerID string) error

	// UpdateRole changes the role of the user with the given email.
	UpdateRole(ctx context.Context, email string, role entity.Role) (*entity.User, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
