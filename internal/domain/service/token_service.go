package service

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenSigner issues and verifies short-lived access tokens.
// The signing secret and TTL are fixed when the signer is constructed.
type TokenSigner interface {
	// Issue creates an access token for the user and returns it with its absolute expiry.
	Issue(userID uuid.UUID) (accessToken string, expiresAt time.Time, err error)

	// Verify checks signature, algorithm and expiry and returns the subject.
	// Every failure is reported as domainerrors.ErrUnauthorized.
	Verify(accessToken string) (uuid.UUID, error)
}

// RefreshTokenLedger mints and redeems single-use refresh tokens.
type RefreshTokenLedger interface {
	// Issue mints and persists a new refresh token for the user.
	Issue(ctx context.Context, userID uuid.UUID) (*entity.RefreshToken, error)

	// Redeem atomically consumes the token on behalf of userID.
	// It returns repository.ErrRefreshTokenNotFound when the token cannot be redeemed.
	Redeem(ctx context.Context, userID uuid.UUID, token string) error

	// PurgeExpired removes unconsumed tokens that expired before the cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
