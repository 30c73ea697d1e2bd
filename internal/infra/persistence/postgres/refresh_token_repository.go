package postgres

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the repository.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create persists a newly minted refresh token.
func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// Consume flips the consumed flag with a single conditional UPDATE.
// Postgres serializes concurrent updates of the row, so only one caller sees RowsAffected == 1.
func (repo *refreshTokenRepository) Consume(ctx context.Context, userID uuid.UUID, token string, now time.Time) error {
	result := consumeStatement(repo.db.WithContext(ctx), userID, token, now)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to consume refresh token")
	}
	if result.RowsAffected != 1 {
		return repository.ErrRefreshTokenNotFound
	}

	return nil
}

// DeleteExpiredBefore removes unconsumed tokens that expired before the cutoff.
// Consumed rows stay as the redemption audit trail.
func (repo *refreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := purgeStatement(repo.db.WithContext(ctx), cutoff)
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired refresh tokens")
	}

	return result.RowsAffected, nil
}

func consumeStatement(tx *gorm.DB, userID uuid.UUID, token string, now time.Time) *gorm.DB {
	return tx.Model(&model.RefreshTokenModel{}).
		Where("token = ? AND user_id = ? AND consumed = ? AND expires_at > ?", token, userID, false, now).
		Updates(map[string]any{"consumed": true, "consumed_at": now})
}

func purgeStatement(tx *gorm.DB, cutoff time.Time) *gorm.DB {
	return tx.Where("consumed = ? AND expires_at < ?", false, cutoff).
		Delete(&model.RefreshTokenModel{})
}

// --- Mapper Functions ---

// fromRefreshTokenDomain converts a domain RefreshToken entity to a GORM RefreshTokenModel.
func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	if data == nil {
		return nil
	}

	return &model.RefreshTokenModel{
		Token:      data.Token,
		UserID:     data.UserID,
		ExpiresAt:  data.ExpiresAt,
		Consumed:   data.Consumed,
		ConsumedAt: data.ConsumedAt,
		CreatedAt:  data.CreatedAt,
	}
}
