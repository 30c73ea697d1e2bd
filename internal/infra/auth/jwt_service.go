package auth

import (
	"time"

	"notekeeper/config"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// jwtService signs access tokens with HS256. It carries no refresh secret:
// refresh tokens are opaque and live in the ledger.
type jwtService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWTService is the constructor for jwtService.
// The secret and TTL are read once here and never change afterwards.
func NewJWTService(cfg *config.Config) (service.TokenSigner, error) {
	if cfg.SecretKey.Access == "" {
		return nil, errors.New("jwt access secret must be provided")
	}

	ttl := cfg.Auth.AccessTokenTTL
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}

	return newJWTService(cfg.SecretKey.Access, ttl, time.Now), nil
}

func newJWTService(secret string, ttl time.Duration, now func() time.Time) *jwtService {
	return &jwtService{
		secret:    []byte(secret),
		accessTTL: ttl,
		now:       now,
	}
}

// Issue creates an access token carrying sub, iat, exp and a random jti.
func (s *jwtService) Issue(userID uuid.UUID) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := jwt.NewNumericDate(issuedAt.Add(s.accessTTL))

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: expiresAt,
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign access token")
	}

	return signed, expiresAt.Time, nil
}

// Verify parses the token and returns its subject.
func (s *jwtService) Verify(accessToken string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, domainerrors.ErrUnauthorized.WrapMessage("invalid access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, domainerrors.ErrUnauthorized.WrapMessage("invalid subject in access token")
	}

	return userID, nil
}
