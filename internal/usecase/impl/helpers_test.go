package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/domain/service"
	"notekeeper/internal/infra/auth"
	"notekeeper/internal/infra/auth/oauth"
	"notekeeper/internal/infra/persistence/memory"
	"notekeeper/internal/usecase"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		SecretKey: config.SecretKeyConfig{Access: "impl-test-secret"},
		Storage:   config.StorageConfig{Driver: config.StorageDriverMemory},
		Auth: &config.AuthConfig{
			BcryptCost:   bcrypt.MinCost,
			StoreTimeout: time.Second,
		},
	}
	cfg.ApplyDefaults()

	return cfg
}

// fakeIdentityProvider maps provider access tokens to identities.
type fakeIdentityProvider struct {
	provider   entity.Provider
	identities map[string]*service.FederatedIdentity
}

func newFakeProvider(provider entity.Provider) *fakeIdentityProvider {
	return &fakeIdentityProvider{provider: provider, identities: map[string]*service.FederatedIdentity{}}
}

func (p *fakeIdentityProvider) with(token, providerID, email, name string) *fakeIdentityProvider {
	p.identities[token] = &service.FederatedIdentity{Provider: p.provider, ProviderID: providerID, Email: email, Name: name}

	return p
}

func (p *fakeIdentityProvider) Provider() entity.Provider {
	return p.provider
}

func (p *fakeIdentityProvider) Verify(_ context.Context, accessToken string) (*service.FederatedIdentity, error) {
	identity, ok := p.identities[accessToken]
	if !ok {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("provider rejected token")
	}
	cloned := *identity

	return &cloned, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.AuthEvent
	err    error
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, event *service.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []service.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]service.AuthEventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}

	return types
}

type testEnv struct {
	cfg       *config.Config
	store     *memory.Store
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	signer    service.TokenSigner
	ledger    service.RefreshTokenLedger
	publisher *recordingPublisher
	auth      usecase.AuthUsecase
	users     usecase.UserUsecase
}

type envOption func(*testEnv)

// withUserRepo swaps the user repository seen by the services.
func withUserRepo(wrap func(repository.UserRepository) repository.UserRepository) envOption {
	return func(env *testEnv) {
		env.userRepo = wrap(env.userRepo)
	}
}

func newTestEnv(t *testing.T, providers []service.IdentityProvider, opts ...envOption) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	store := memory.NewStore()
	signer, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	env := &testEnv{
		cfg:       cfg,
		store:     store,
		userRepo:  memory.NewUserRepository(store),
		tokenRepo: memory.NewRefreshTokenRepository(store),
		signer:    signer,
		publisher: &recordingPublisher{},
	}
	for _, opt := range opts {
		opt(env)
	}

	env.ledger = auth.NewRefreshTokenLedger(auth.RefreshLedgerParams{Repo: env.tokenRepo, Config: cfg})
	env.auth = NewAuthService(AuthServiceParams{
		UserRepo:  env.userRepo,
		Hasher:    auth.NewBcryptHasher(cfg),
		Signer:    signer,
		Ledger:    env.ledger,
		Providers: oauth.NewRegistryOf(providers...),
		Publisher: env.publisher,
		Config:    cfg,
		Logger:    newDiscardLogger(),
	})
	env.users = NewUserService(UserServiceParams{
		UserRepo: env.userRepo,
		Signer:   signer,
		Config:   cfg,
		Logger:   newDiscardLogger(),
	})

	return env
}

func (env *testEnv) register(t *testing.T, email, password string) *usecase.AuthOutput {
	t.Helper()

	out, err := env.auth.Register(context.Background(), &usecase.RegisterInput{Email: email, Password: password})
	require.NoError(t, err)

	return out
}

// blockingUserRepo never answers lookups before the caller's deadline.
type blockingUserRepo struct {
	repository.UserRepository
}

func (r blockingUserRepo) FindByEmail(ctx context.Context, _ string) (*entity.User, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}
