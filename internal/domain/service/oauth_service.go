package service

import (
	"context"

	"notekeeper/internal/domain/entity"
)

// FederatedIdentity is what an identity provider vouches for.
type FederatedIdentity struct {
	Provider   entity.Provider
	ProviderID string // The provider's stable account id.
	Email      string
	Name       string
}

// IdentityProvider verifies a client-supplied provider access token.
type IdentityProvider interface {
	// Provider returns the provider this implementation talks to.
	Provider() entity.Provider

	// Verify asks the provider who owns accessToken. Any failure, including transport
	// errors and missing email, is reported as domainerrors.ErrUnauthorized.
	Verify(ctx context.Context, accessToken string) (*FederatedIdentity, error)
}

// IdentityProviderRegistry resolves the verifier for a provider.
type IdentityProviderRegistry interface {
	Get(provider entity.Provider) (IdentityProvider, bool)
}
