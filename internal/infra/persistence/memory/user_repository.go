package memory

import (
	"context"
	"time"

	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
}

// NewUserRepository returns a UserRepository backed by the store.
func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	user, ok := repo.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	id, ok := repo.store.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(repo.store.users[id]), nil
}

func (repo *userRepository) FindByProviderID(ctx context.Context, provider entity.Provider, providerID string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	id, ok := repo.store.byProvider[providerKey{provider: provider, providerID: providerID}]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(repo.store.users[id]), nil
}

func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if _, taken := repo.store.byEmail[user.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	for provider, providerID := range user.ProviderIDs {
		if _, taken := repo.store.byProvider[providerKey{provider: provider, providerID: providerID}]; taken {
			return repository.ErrProviderAlreadyLinked
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := cloneUser(user)
	repo.store.users[stored.ID] = stored
	repo.store.byEmail[stored.Email] = stored.ID
	for provider, providerID := range stored.ProviderIDs {
		repo.store.byProvider[providerKey{provider: provider, providerID: providerID}] = stored.ID
	}

	return nil
}

func (repo *userRepository) LinkProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider, providerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	user, ok := repo.store.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if _, linked := user.ProviderID(provider); linked {
		return repository.ErrProviderAlreadyLinked
	}
	key := providerKey{provider: provider, providerID: providerID}
	if _, taken := repo.store.byProvider[key]; taken {
		return repository.ErrProviderAlreadyLinked
	}

	if user.ProviderIDs == nil {
		user.ProviderIDs = map[entity.Provider]string{}
	}
	user.ProviderIDs[provider] = providerID
	user.UpdatedAt = time.Now().UTC()
	repo.store.byProvider[key] = userID

	return nil
}

func (repo *userRepository) UpdateRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	id, ok := repo.store.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	user := repo.store.users[id]
	user.Role = role
	user.UpdatedAt = time.Now().UTC()

	return cloneUser(user), nil
}

func (repo *userRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
