// Package memory is an in-process implementation of the credential store and refresh
// token ledger storage. It backs local development and tests; every operation runs
// under one mutex, which gives the same atomicity the database backends get from
// conditional updates.
package memory

import (
	"maps"
	"sync"

	"notekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

type providerKey struct {
	provider   entity.Provider
	providerID string
}

// Store holds users and refresh tokens.
type Store struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*entity.User
	byEmail    map[string]uuid.UUID
	byProvider map[providerKey]uuid.UUID
	tokens     map[string]*entity.RefreshToken
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*entity.User),
		byEmail:    make(map[string]uuid.UUID),
		byProvider: make(map[providerKey]uuid.UUID),
		tokens:     make(map[string]*entity.RefreshToken),
	}
}

func cloneUser(u *entity.User) *entity.User {
	cloned := *u
	cloned.ProviderIDs = maps.Clone(u.ProviderIDs)
	if cloned.ProviderIDs == nil {
		cloned.ProviderIDs = map[entity.Provider]string{}
	}

	return &cloned
}

func cloneToken(t *entity.RefreshToken) *entity.RefreshToken {
	cloned := *t
	if t.ConsumedAt != nil {
		at := *t.ConsumedAt
		cloned.ConsumedAt = &at
	}

	return &cloned
}
