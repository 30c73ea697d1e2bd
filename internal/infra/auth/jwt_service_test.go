package auth

import (
	"testing"
	"time"

	"notekeeper/config"
	domainerrors "notekeeper/internal/domain/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessSecret = "test_access_secret_key_very_long_for_testing"

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	cfg := &config.Config{Auth: &config.AuthConfig{AccessTokenTTL: time.Minute}}

	signer, err := NewJWTService(cfg)
	assert.Error(t, err)
	assert.Nil(t, signer)
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	clock := newTestClock()
	signer := newJWTService(testAccessSecret, 15*time.Minute, clock.Now)
	userID := uuid.New()

	token, expiresAt, err := signer.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(15*time.Minute), expiresAt)

	got, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestJWTService_TokensCarryUniqueID(t *testing.T) {
	signer := newJWTService(testAccessSecret, time.Minute, newTestClock().Now)
	userID := uuid.New()

	first, _, err := signer.Issue(userID)
	require.NoError(t, err)
	second, _, err := signer.Issue(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTService_VerifyRejectsExpired(t *testing.T) {
	clock := newTestClock()
	signer := newJWTService(testAccessSecret, time.Minute, clock.Now)

	token, _, err := signer.Issue(uuid.New())
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestJWTService_VerifyRejectsWrongSecret(t *testing.T) {
	clock := newTestClock()
	issuer := newJWTService("some-other-secret", time.Minute, clock.Now)
	verifier := newJWTService(testAccessSecret, time.Minute, clock.Now)

	token, _, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestJWTService_VerifyRejectsMalformedAndForeignTokens(t *testing.T) {
	clock := newTestClock()
	signer := newJWTService(testAccessSecret, time.Minute, clock.Now)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: uuid.NewString(),
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":     "clearly-not-a-jwt-token-format",
		"empty":       "",
		"alg none":    noneToken,
		"bad subject": badSubject,
		"no expiry":   noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := signer.Verify(token)
			assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
		})
	}
}
