// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"notekeeper/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a local account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string // Optional; defaults to the local part of the email.
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// RefreshInput identifies the session to rotate.
type RefreshInput struct {
	Email        string
	RefreshToken string
}

// FederatedLoginInput carries an access token issued to the client by an identity provider.
type FederatedLoginInput struct {
	Provider    entity.Provider
	AccessToken string
}

// --- Output DTOs ---

// AuthOutput is the result of every authentication that yields a user.
type AuthOutput struct {
	User  *entity.User
	Token *entity.TokenPair
	// Created is set when the call created the account.
	Created bool
}

// AuthUsecase defines the token-issuing operations.
// Every failure is one of the domain error kinds; store and provider internals never leak.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error)
	Login(ctx context.Context, input *LoginInput) (*AuthOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*entity.TokenPair, error)
	FederatedLogin(ctx context.Context, input *FederatedLoginInput) (*AuthOutput, error)
}
