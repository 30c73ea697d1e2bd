// Package handler contains the HTTP handlers for the API.
package handler

import (
	"time"

	"notekeeper/internal/domain/entity"
	"notekeeper/internal/usecase"
)

// UserView is the public shape of a user. The password hash never leaves the service.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenView is the wire form of a token pair.
type TokenView struct {
	TokenType    string    `json:"tokenType"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    time.Time `json:"expiresIn"`
}

// AuthView answers every authentication that yields a user.
type AuthView struct {
	Token *TokenView `json:"token"`
	User  *UserView  `json:"user"`
}

func newUserView(user *entity.User) *UserView {
	return &UserView{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role.String(),
		CreatedAt: user.CreatedAt,
	}
}

func newTokenView(pair *entity.TokenPair) *TokenView {
	return &TokenView{
		TokenType:    pair.TokenType,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func newAuthView(output *usecase.AuthOutput) *AuthView {
	return &AuthView{
		Token: newTokenView(output.Token),
		User:  newUserView(output.User),
	}
}
