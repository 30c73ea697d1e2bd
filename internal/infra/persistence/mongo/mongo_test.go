package mongo

import (
	"testing"
	"time"

	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestUserDocumentMapping(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &entity.User{
		ID:           uuid.New(),
		Email:        "bob@x.com",
		PasswordHash: "hash",
		Name:         "bob",
		Role:         entity.RoleUser,
		ProviderIDs:  map[entity.Provider]string{entity.ProviderFacebook: "fb-1", entity.ProviderGoogle: ""},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	doc := fromUserDomain(user)
	assert.Equal(t, user.ID.String(), doc.ID)
	assert.Equal(t, map[string]string{"facebook": "fb-1"}, doc.Providers)

	back, err := toUserDomain(doc)
	require.NoError(t, err)
	assert.Equal(t, user.ID, back.ID)
	assert.Equal(t, "fb-1", back.ProviderIDs[entity.ProviderFacebook])
	_, linked := back.ProviderID(entity.ProviderGoogle)
	assert.False(t, linked)
}

func TestUserDocumentMapping_NoProvidersOmitted(t *testing.T) {
	doc := fromUserDomain(&entity.User{ID: uuid.New(), Email: "alice@x.com"})
	assert.Nil(t, doc.Providers)
}

func TestToUserDomain_RejectsBadID(t *testing.T) {
	_, err := toUserDomain(&userDocument{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestClassifyDuplicate(t *testing.T) {
	emailDup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error collection: notekeeper.users index: uniq_email dup key"}}}
	providerDup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error collection: notekeeper.users index: uniq_provider_google dup key"}}}

	require.True(t, mongo.IsDuplicateKeyError(emailDup))
	assert.True(t, errors.Is(classifyDuplicate(emailDup), repository.ErrDuplicateEmail))
	assert.True(t, errors.Is(classifyDuplicate(providerDup), repository.ErrProviderAlreadyLinked))
}

func TestProviderField(t *testing.T) {
	assert.Equal(t, "providers.facebook", providerField(entity.ProviderFacebook))
}

func TestConsumeFilter(t *testing.T) {
	owner := uuid.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	filter := consumeFilter(owner, "tok", now)
	assert.Equal(t, bson.D{
		{Key: "_id", Value: "tok"},
		{Key: "userId", Value: owner.String()},
		{Key: "consumed", Value: false},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}, filter)

	update := consumeUpdate(now)
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "consumed", Value: true},
		{Key: "consumedAt", Value: now},
	}}}, update)
}

func TestPurgeFilterSkipsConsumed(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.D{
		{Key: "consumed", Value: false},
		{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	}, purgeFilter(cutoff))
}
