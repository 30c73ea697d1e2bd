package entity

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies an external identity provider used for federated login.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google"
)

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the Provider is one of the supported providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderFacebook, ProviderGoogle:
		return true
	default:
		return false
	}
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// RefreshToken is an opaque, single-use credential exchanged for a new TokenPair.
// Records are marked consumed rather than deleted so redemption history survives.
type RefreshToken struct {
	Token      string     // "<userId>.<40 hex chars>"
	UserID     uuid.UUID  // Owner; must match the caller at redemption.
	ExpiresAt  time.Time  // Creation time plus the refresh TTL.
	Consumed   bool       // Set exactly once, by the winning redemption.
	ConsumedAt *time.Time // When the token was redeemed, nil until then.
	CreatedAt  time.Time
}

// IsRedeemable reports whether the token could still be exchanged at the given time.
func (t *RefreshToken) IsRedeemable(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}

// TokenPair is returned to the client on every successful authentication. It is never persisted.
type TokenPair struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Time // Absolute access token expiry.
}
