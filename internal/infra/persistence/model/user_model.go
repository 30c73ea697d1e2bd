// Package model holds the GORM persistence models for the postgres backend.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table.
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string    `gorm:"type:varchar(255);unique;not null"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	Name         string    `gorm:"type:varchar(128)"`
	Role         string    `gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Identities []UserIdentityModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// UserIdentityModel mirrors the 'user_identities' table: one row per linked provider account.
// A provider account belongs to one user, and a user has at most one account per provider.
type UserIdentityModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_identity_user_provider"`
	Provider       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_identity_user_provider;uniqueIndex:idx_identity_provider_account"`
	ProviderUserID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_identity_provider_account"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserIdentityModel) TableName() string {
	return "user_identities"
}
