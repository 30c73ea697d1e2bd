package memory

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type refreshTokenRepository struct {
	store *Store
}

// NewRefreshTokenRepository returns a RefreshTokenRepository backed by the store.
func NewRefreshTokenRepository(store *Store) repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: store}
}

func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if _, exists := repo.store.tokens[token.Token]; exists {
		return errors.New("refresh token already exists")
	}
	repo.store.tokens[token.Token] = cloneToken(token)

	return nil
}

func (repo *refreshTokenRepository) Consume(ctx context.Context, userID uuid.UUID, token string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	stored, ok := repo.store.tokens[token]
	if !ok || stored.UserID != userID || !stored.IsRedeemable(now) {
		return repository.ErrRefreshTokenNotFound
	}

	consumedAt := now
	stored.Consumed = true
	stored.ConsumedAt = &consumedAt

	return nil
}

func (repo *refreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var removed int64
	for key, token := range repo.store.tokens {
		if !token.Consumed && token.ExpiresAt.Before(cutoff) {
			delete(repo.store.tokens, key)
			removed++
		}
	}

	return removed, nil
}

// Get returns a copy of the stored token. Used by tests to inspect audit state.
func (s *Store) Get(token string) (*entity.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token]
	if !ok {
		return nil, false
	}

	return cloneToken(stored), true
}
