package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// refreshSecretBytes gives 160 bits of entropy, 40 hex characters.
const refreshSecretBytes = 20

// refreshLedger mints opaque refresh tokens and delegates atomic redemption to the store.
type refreshLedger struct {
	repo    repository.RefreshTokenRepository
	ttl     time.Duration
	now     func() time.Time
	entropy io.Reader
}

// RefreshLedgerParams holds dependencies for the refresh token ledger, injected by Fx.
type RefreshLedgerParams struct {
	fx.In

	Repo   repository.RefreshTokenRepository
	Config *config.Config
}

// NewRefreshTokenLedger is the constructor for refreshLedger.
func NewRefreshTokenLedger(params RefreshLedgerParams) service.RefreshTokenLedger {
	return newRefreshLedger(params.Repo, params.Config.Auth.RefreshTokenTTL, time.Now, rand.Reader)
}

func newRefreshLedger(repo repository.RefreshTokenRepository, ttl time.Duration, now func() time.Time, entropy io.Reader) *refreshLedger {
	return &refreshLedger{
		repo:    repo,
		ttl:     ttl,
		now:     now,
		entropy: entropy,
	}
}

// Issue mints "<userId>.<40 hex>" and persists it with an expiry of now + ttl.
func (l *refreshLedger) Issue(ctx context.Context, userID uuid.UUID) (*entity.RefreshToken, error) {
	secret := make([]byte, refreshSecretBytes)
	if _, err := io.ReadFull(l.entropy, secret); err != nil {
		return nil, errors.Wrap(err, "failed to read refresh token entropy")
	}

	now := l.now()
	token := &entity.RefreshToken{
		Token:     userID.String() + "." + hex.EncodeToString(secret),
		UserID:    userID,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	if err := l.repo.Create(ctx, token); err != nil {
		return nil, errors.Wrap(err, "failed to persist refresh token")
	}

	return token, nil
}

// Redeem consumes the token for userID. Tokens that cannot belong to userID are
// rejected before touching the store.
func (l *refreshLedger) Redeem(ctx context.Context, userID uuid.UUID, token string) error {
	if !tokenBelongsTo(token, userID) {
		return repository.ErrRefreshTokenNotFound
	}

	if err := l.repo.Consume(ctx, userID, token, l.now()); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return repository.ErrRefreshTokenNotFound
		}

		return errors.Wrap(err, "failed to consume refresh token")
	}

	return nil
}

// PurgeExpired removes unconsumed tokens that expired before cutoff.
func (l *refreshLedger) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := l.repo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge expired refresh tokens")
	}

	return removed, nil
}

func tokenBelongsTo(token string, userID uuid.UUID) bool {
	prefix, secret, ok := strings.Cut(token, ".")
	if !ok || prefix != userID.String() || len(secret) != 2*refreshSecretBytes {
		return false
	}

	_, err := hex.DecodeString(secret)

	return err == nil
}
