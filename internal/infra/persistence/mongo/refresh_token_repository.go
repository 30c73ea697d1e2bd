package mongo

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type refreshTokenDocument struct {
	Token      string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	Consumed   bool       `bson:"consumed"`
	ConsumedAt *time.Time `bson:"consumedAt,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt"`
}

type refreshTokenRepository struct {
	tokens *mongo.Collection
}

// NewRefreshTokenRepository returns a RefreshTokenRepository backed by the refresh_tokens collection.
func NewRefreshTokenRepository(db *mongo.Database) repository.RefreshTokenRepository {
	return &refreshTokenRepository{tokens: db.Collection(refreshTokensCollection)}
}

func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	if _, err := repo.tokens.InsertOne(ctx, fromRefreshTokenDomain(token)); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	return nil
}

// Consume relies on single-document atomicity: the filter and the $set apply as one operation,
// so concurrent callers cannot both match an unconsumed document.
func (repo *refreshTokenRepository) Consume(ctx context.Context, userID uuid.UUID, token string, now time.Time) error {
	result, err := repo.tokens.UpdateOne(ctx, consumeFilter(userID, token, now), consumeUpdate(now))
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to consume refresh token")
	}
	if result.ModifiedCount != 1 {
		return repository.ErrRefreshTokenNotFound
	}

	return nil
}

// DeleteExpiredBefore keeps consumed documents; they are the redemption audit trail.
func (repo *refreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := repo.tokens.DeleteMany(ctx, purgeFilter(cutoff))
	if err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to delete expired refresh tokens")
	}

	return result.DeletedCount, nil
}

func consumeFilter(userID uuid.UUID, token string, now time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: token},
		{Key: "userId", Value: userID.String()},
		{Key: "consumed", Value: false},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}
}

func consumeUpdate(now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "consumed", Value: true},
		{Key: "consumedAt", Value: now},
	}}}
}

func purgeFilter(cutoff time.Time) bson.D {
	return bson.D{
		{Key: "consumed", Value: false},
		{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	}
}

func fromRefreshTokenDomain(token *entity.RefreshToken) *refreshTokenDocument {
	return &refreshTokenDocument{
		Token:      token.Token,
		UserID:     token.UserID.String(),
		ExpiresAt:  token.ExpiresAt,
		Consumed:   token.Consumed,
		ConsumedAt: token.ConsumedAt,
		CreatedAt:  token.CreatedAt,
	}
}
