package usecase

import (
	"context"

	"notekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// UserUsecase defines account lookups used by protected routes and operators.
type UserUsecase interface {
	// Authenticate verifies an access token and loads its subject with the current role.
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)

	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)

	// ChangeRole is the out-of-band elevation path; it is not exposed over HTTP.
	ChangeRole(ctx context.Context, email string, role entity.Role) (*entity.User, error)
}

// HealthUsecase reports whether the service's dependencies answer.
type HealthUsecase interface {
	Check(ctx context.Context) error
}
