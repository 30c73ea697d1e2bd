package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Rows are flagged consumed, never deleted on use.
type RefreshTokenModel struct {
	Token      string     `gorm:"type:varchar(128);primaryKey"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	Consumed   bool       `gorm:"not null;default:false"`
	ConsumedAt *time.Time `gorm:"default:null"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&UserModel{},
		&UserIdentityModel{},
		&RefreshTokenModel{},
	}
}
