package repository

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRefreshTokenNotFound is returned when no redeemable token matches: it is unknown,
// owned by another user, already consumed, or expired.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository persists refresh tokens for the ledger.
type RefreshTokenRepository interface {
	// Create persists a newly minted refresh token.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// Consume marks the token consumed if, and only if, it belongs to userID, is not yet
	// consumed and has not expired at now. The check and the write are a single
	// conditional update in the store, so of two concurrent calls at most one succeeds.
	Consume(ctx context.Context, userID uuid.UUID, token string, now time.Time) error

	// DeleteExpiredBefore removes unconsumed tokens that expired before the cutoff and returns how many.
	// Consumed tokens are kept for audit.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
