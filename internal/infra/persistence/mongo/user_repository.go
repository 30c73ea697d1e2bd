package mongo

import (
	"context"
	"strings"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	emailIndexName      = "uniq_email"
	providerIndexPrefix = "uniq_provider_"
)

var supportedProviders = []entity.Provider{entity.ProviderFacebook, entity.ProviderGoogle}

// userDocument is the stored shape of a user. Provider ids live in an embedded map keyed by provider.
type userDocument struct {
	ID           string            `bson:"_id"`
	Email        string            `bson:"email"`
	PasswordHash string            `bson:"passwordHash,omitempty"`
	Name         string            `bson:"name"`
	Role         string            `bson:"role"`
	Providers    map[string]string `bson:"providers,omitempty"`
	CreatedAt    time.Time         `bson:"createdAt"`
	UpdatedAt    time.Time         `bson:"updatedAt"`
}

type userRepository struct {
	users *mongo.Collection
}

// NewUserRepository returns a UserRepository backed by the users collection.
func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &userRepository{users: db.Collection(usersCollection)}
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (repo *userRepository) FindByProviderID(ctx context.Context, provider entity.Provider, providerID string) (*entity.User, error) {
	return repo.findOne(ctx, bson.D{{Key: providerField(provider), Value: providerID}})
}

// Create inserts the user. The unique indexes decide races on email and provider ids.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := repo.users.InsertOne(ctx, fromUserDomain(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return classifyDuplicate(err)
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	return nil
}

// LinkProvider sets the provider slot only while it is still empty.
func (repo *userRepository) LinkProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider, providerID string) error {
	field := providerField(provider)
	filter := bson.D{
		{Key: "_id", Value: userID.String()},
		{Key: field, Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: field, Value: providerID},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	result, err := repo.users.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrProviderAlreadyLinked
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to link provider")
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// Nothing matched: either the user is missing or the slot is taken.
	count, err := repo.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: userID.String()}})
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to look up user")
	}
	if count == 0 {
		return repository.ErrUserNotFound
	}

	return repository.ErrProviderAlreadyLinked
}

func (repo *userRepository) UpdateRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "role", Value: role.String()},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := repo.users.FindOneAndUpdate(ctx, bson.D{{Key: "email", Value: email}}, update, opts).Decode(&doc)
	if err != nil {
		return nil, translateFindError(err, "failed to update user role")
	}

	return toUserDomain(&doc)
}

func (repo *userRepository) Ping(ctx context.Context) error {
	return errors.WithStack(repo.users.Database().Client().Ping(ctx, nil))
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.D) (*entity.User, error) {
	var doc userDocument
	if err := repo.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateFindError(err, "failed to find user")
	}

	return toUserDomain(&doc)
}

func translateFindError(err error, message string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrUserNotFound
	}

	return domainerrors.NewDatabaseExecuteError(err, message)
}

// classifyDuplicate tells an email collision from a provider id collision by the index name in the server message.
func classifyDuplicate(err error) error {
	if strings.Contains(err.Error(), providerIndexPrefix) {
		return repository.ErrProviderAlreadyLinked
	}

	return repository.ErrDuplicateEmail
}

func providerField(provider entity.Provider) string {
	return "providers." + provider.String()
}

// --- Mapper Functions ---

func toUserDomain(doc *userDocument) (*entity.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "stored user id is not a uuid")
	}

	providerIDs := make(map[entity.Provider]string, len(doc.Providers))
	for provider, providerID := range doc.Providers {
		providerIDs[entity.Provider(provider)] = providerID
	}

	return &entity.User{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		Role:         entity.Role(doc.Role),
		ProviderIDs:  providerIDs,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func fromUserDomain(user *entity.User) *userDocument {
	var providers map[string]string
	for provider, providerID := range user.ProviderIDs {
		if providerID == "" {
			continue
		}
		if providers == nil {
			providers = make(map[string]string, len(user.ProviderIDs))
		}
		providers[provider.String()] = providerID
	}

	return &userDocument{
		ID:           user.ID.String(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		Role:         user.Role.String(),
		Providers:    providers,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
