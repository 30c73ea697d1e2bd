// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// userRepository implements the repository.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a repository.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID, preloading linked identities.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Preload("Identities").
		Where("id = ?", id).
		First(&userM).Error
	if err != nil {
		return nil, translateFindError(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their normalized email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Preload("Identities").
		Where("email = ?", email).
		First(&userM).Error
	if err != nil {
		return nil, translateFindError(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// FindByProviderID retrieves the user owning the given provider account.
func (repo *userRepository) FindByProviderID(ctx context.Context, provider entity.Provider, providerID string) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Preload("Identities").
		Joins("JOIN user_identities ON user_identities.user_id = users.id").
		Where("user_identities.provider = ? AND user_identities.provider_user_id = ?", provider.String(), providerID).
		First(&userM).Error
	if err != nil {
		return nil, translateFindError(err, "failed to find user by provider id")
	}

	return toUserDomain(&userM), nil
}

// Create inserts the user and any provider identities in one transaction.
// The unique email index decides concurrent registrations of the same address.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)
	if userM.ID == uuid.Nil {
		userM.ID = uuid.New()
	}
	identities := userM.Identities
	userM.Identities = nil

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userM).Error; err != nil {
			if isUniqueConstraintViolation(err) {
				return repository.ErrDuplicateEmail
			}

			return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
		}

		for i := range identities {
			identities[i].UserID = userM.ID
			if err := tx.Create(&identities[i]).Error; err != nil {
				if isUniqueConstraintViolation(err) {
					return repository.ErrProviderAlreadyLinked
				}

				return domainerrors.NewDatabaseExecuteError(err, "failed to create user identity")
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	// Update the user entity with the generated ID and timestamps
	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// LinkProvider inserts an identity row. Both unique indexes on user_identities reject a second link.
func (repo *userRepository) LinkProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider, providerID string) error {
	identity := &model.UserIdentityModel{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       provider.String(),
		ProviderUserID: providerID,
	}

	if err := repo.db.WithContext(ctx).Create(identity).Error; err != nil {
		switch {
		case isUniqueConstraintViolation(err):
			return repository.ErrProviderAlreadyLinked
		case isForeignKeyConstraintViolation(err):
			return repository.ErrUserNotFound
		default:
			return domainerrors.NewDatabaseExecuteError(err, "failed to link provider")
		}
	}

	return nil
}

// UpdateRole sets the role of the user with the given email and returns the updated user.
func (repo *userRepository) UpdateRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("email = ?", email).
		Updates(map[string]any{"role": role.String(), "updated_at": time.Now()})
	if result.Error != nil {
		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user role")
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrUserNotFound
	}

	return repo.FindByEmail(ctx, email)
}

// Ping checks the connection pool behind the repository.
func (repo *userRepository) Ping(ctx context.Context) error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	return errors.WithStack(sqlDB.PingContext(ctx))
}

func translateFindError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrUserNotFound
	}

	return domainerrors.NewDatabaseExecuteError(err, message)
}

// --- Mapper Functions ---

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	providerIDs := make(map[entity.Provider]string, len(data.Identities))
	for _, identity := range data.Identities {
		providerIDs[entity.Provider(identity.Provider)] = identity.ProviderUserID
	}

	return &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Name:         data.Name,
		Role:         entity.Role(data.Role),
		ProviderIDs:  providerIDs,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	identities := make([]model.UserIdentityModel, 0, len(data.ProviderIDs))
	for provider, providerID := range data.ProviderIDs {
		if providerID == "" {
			continue
		}
		identities = append(identities, model.UserIdentityModel{
			ID:             uuid.New(),
			UserID:         data.ID,
			Provider:       provider.String(),
			ProviderUserID: providerID,
		})
	}

	return &model.UserModel{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Name:         data.Name,
		Role:         data.Role.String(),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		Identities:   identities,
	}
}
