package impl

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/domain/service"
	"notekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireAppError(t *testing.T, err error, target *domainerrors.BaseError) domainerrors.AppError {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, target), "expected %s, got %v", target.ErrorCode(), err)

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))

	return appErr
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	registered := env.register(t, "  Alice@X.com ", "secret1")
	assert.True(t, registered.Created)
	assert.Equal(t, "alice@x.com", registered.User.Email)
	assert.Equal(t, "alice", registered.User.Name)
	assert.Equal(t, entity.RoleUser, registered.User.Role)
	assert.Equal(t, entity.TokenTypeBearer, registered.Token.TokenType)
	assert.NotEmpty(t, registered.Token.AccessToken)
	assert.True(t, strings.HasPrefix(registered.Token.RefreshToken, registered.User.ID.String()+"."))
	assert.True(t, registered.Token.ExpiresIn.After(time.Now()))

	loggedIn, err := env.auth.Login(ctx, &usecase.LoginInput{Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, loggedIn.Created)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.Equal(t, entity.RoleUser, loggedIn.User.Role)
	assert.NotEqual(t, registered.Token.RefreshToken, loggedIn.Token.RefreshToken)

	subject, err := env.signer.Verify(loggedIn.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, subject)
}

func TestAuthService_RegisterKeepsGivenName(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.auth.Register(context.Background(), &usecase.RegisterInput{Email: "carol@x.com", Password: "secret1", Name: "Carol C"})
	require.NoError(t, err)
	assert.Equal(t, "Carol C", out.User.Name)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice@x.com", "secret1")

	for _, password := range []string{"secret1", "another-password"} {
		_, err := env.auth.Register(context.Background(), &usecase.RegisterInput{Email: "ALICE@x.com", Password: password})
		appErr := requireAppError(t, err, domainerrors.ErrUserAlreadyExists)
		assert.Equal(t, 409, appErr.HTTPCode())
	}
}

func TestAuthService_ConcurrentRegisterOneWinner(t *testing.T) {
	env := newTestEnv(t, nil)

	const attempts = 8
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.Register(context.Background(), &usecase.RegisterInput{Email: "race@x.com", Password: "secret1"})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domainerrors.ErrUserAlreadyExists):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func TestAuthService_LoginFailuresAreUniform(t *testing.T) {
	google := newFakeProvider(entity.ProviderGoogle).with("g-token", "g-1", "oauth@x.com", "OAuth Only")
	env := newTestEnv(t, []service.IdentityProvider{google})
	ctx := context.Background()

	env.register(t, "alice@x.com", "secret1")
	_, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderGoogle, AccessToken: "g-token"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input usecase.LoginInput
	}{
		{name: "unknown email", input: usecase.LoginInput{Email: "nobody@x.com", Password: "secret1"}},
		{name: "wrong password", input: usecase.LoginInput{Email: "alice@x.com", Password: "wrong"}},
		{name: "oauth only account", input: usecase.LoginInput{Email: "oauth@x.com", Password: "anything"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Login(ctx, &tt.input)
			appErr := requireAppError(t, err, domainerrors.ErrUnauthorized)
			assert.Equal(t, 401, appErr.HTTPCode())
			assert.Equal(t, "invalid credentials or token", appErr.Message())
		})
	}
}

func TestAuthService_RefreshRotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	registered := env.register(t, "alice@x.com", "secret1")
	original := registered.Token.RefreshToken

	rotated, err := env.auth.Refresh(ctx, &usecase.RefreshInput{Email: "alice@x.com", RefreshToken: original})
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)

	_, err = env.auth.Refresh(ctx, &usecase.RefreshInput{Email: "alice@x.com", RefreshToken: original})
	requireAppError(t, err, domainerrors.ErrUnauthorized)

	stored, ok := env.store.Get(original)
	require.True(t, ok)
	assert.True(t, stored.Consumed)

	// The rotated token is still good exactly once.
	_, err = env.auth.Refresh(ctx, &usecase.RefreshInput{Email: "alice@x.com", RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_ConcurrentRefreshOneWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	registered := env.register(t, "alice@x.com", "secret1")

	const attempts = 10
	var wins, rejected atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.auth.Refresh(context.Background(), &usecase.RefreshInput{Email: "alice@x.com", RefreshToken: registered.Token.RefreshToken})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domainerrors.ErrUnauthorized):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())
}

func TestAuthService_RefreshRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice@x.com", "secret1")
	bob := env.register(t, "bob@x.com", "secret2")

	expired := &entity.RefreshToken{
		Token:     alice.User.ID.String() + "." + strings.Repeat("0", 40),
		UserID:    alice.User.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.tokenRepo.Create(ctx, expired))

	tests := []struct {
		name  string
		input usecase.RefreshInput
	}{
		{name: "expired never consumed", input: usecase.RefreshInput{Email: "alice@x.com", RefreshToken: expired.Token}},
		{name: "token of another user", input: usecase.RefreshInput{Email: "alice@x.com", RefreshToken: bob.Token.RefreshToken}},
		{name: "unknown email", input: usecase.RefreshInput{Email: "nobody@x.com", RefreshToken: alice.Token.RefreshToken}},
		{name: "garbage token", input: usecase.RefreshInput{Email: "alice@x.com", RefreshToken: "garbage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Refresh(ctx, &tt.input)
			requireAppError(t, err, domainerrors.ErrUnauthorized)
		})
	}

	// None of the rejections burned bob's token.
	_, err := env.auth.Refresh(ctx, &usecase.RefreshInput{Email: "bob@x.com", RefreshToken: bob.Token.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_FederatedLinksExistingAccount(t *testing.T) {
	facebook := newFakeProvider(entity.ProviderFacebook).with("fb-token", "fb-42", "Bob@X.com", "Bobby")
	env := newTestEnv(t, []service.IdentityProvider{facebook})
	ctx := context.Background()

	local := env.register(t, "bob@x.com", "secret2")

	linked, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderFacebook, AccessToken: "fb-token"})
	require.NoError(t, err)
	assert.False(t, linked.Created)
	assert.Equal(t, local.User.ID, linked.User.ID)
	assert.Equal(t, "bob", linked.User.Name)
	providerID, ok := linked.User.ProviderID(entity.ProviderFacebook)
	require.True(t, ok)
	assert.Equal(t, "fb-42", providerID)

	stored, err := env.userRepo.FindByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, "fb-42", stored.ProviderIDs[entity.ProviderFacebook])

	// Second federated login resolves by provider id, and the password still works.
	again, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderFacebook, AccessToken: "fb-token"})
	require.NoError(t, err)
	assert.Equal(t, local.User.ID, again.User.ID)

	_, err = env.auth.Login(ctx, &usecase.LoginInput{Email: "bob@x.com", Password: "secret2"})
	require.NoError(t, err)

	assert.Equal(t, []service.AuthEventType{
		service.AuthEventUserRegistered,
		service.AuthEventUserFederated,
		service.AuthEventUserFederated,
		service.AuthEventUserLoggedIn,
	}, env.publisher.types())
}

func TestAuthService_FederatedCreatesAccount(t *testing.T) {
	google := newFakeProvider(entity.ProviderGoogle).with("g-token", "g-7", "dana@x.com", "")
	env := newTestEnv(t, []service.IdentityProvider{google})
	ctx := context.Background()

	created, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderGoogle, AccessToken: "g-token"})
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, "dana", created.User.Name)
	assert.Equal(t, entity.RoleUser, created.User.Role)
	assert.False(t, created.User.HasPassword())
	assert.NotEmpty(t, created.Token.RefreshToken)

	second, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderGoogle, AccessToken: "g-token"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, created.User.ID, second.User.ID)
}

func TestAuthService_FederatedRejections(t *testing.T) {
	facebook := newFakeProvider(entity.ProviderFacebook).
		with("fb-1", "fb-1", "bob@x.com", "Bob").
		with("fb-2", "fb-2", "bob@x.com", "Other Bob")
	env := newTestEnv(t, []service.IdentityProvider{facebook})
	ctx := context.Background()

	_, err := env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderFacebook, AccessToken: "fb-1"})
	require.NoError(t, err)

	_, err = env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderFacebook, AccessToken: "fb-2"})
	requireAppError(t, err, domainerrors.ErrConflict)

	_, err = env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderFacebook, AccessToken: "forged"})
	requireAppError(t, err, domainerrors.ErrUnauthorized)

	_, err = env.auth.FederatedLogin(ctx, &usecase.FederatedLoginInput{Provider: entity.ProviderGoogle, AccessToken: "fb-1"})
	requireAppError(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_StoreTimeoutIsUnavailable(t *testing.T) {
	env := newTestEnv(t, nil, withUserRepo(func(repo repository.UserRepository) repository.UserRepository {
		return blockingUserRepo{UserRepository: repo}
	}))
	env.cfg.Auth.StoreTimeout = 20 * time.Millisecond
	env.auth.(*authService).storeTimeout = env.cfg.Auth.StoreTimeout

	_, err := env.auth.Login(context.Background(), &usecase.LoginInput{Email: "alice@x.com", Password: "secret1"})
	appErr := requireAppError(t, err, domainerrors.ErrUnavailable)
	assert.Equal(t, 503, appErr.HTTPCode())
}

func TestAuthService_PublishFailureDoesNotFailLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.publisher.err = errors.New("broker down")

	out := env.register(t, "alice@x.com", "secret1")
	assert.NotEqual(t, uuid.Nil, out.User.ID)
	assert.Equal(t, []service.AuthEventType{service.AuthEventUserRegistered}, env.publisher.types())
}
