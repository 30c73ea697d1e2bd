package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"notekeeper/config"
	deliverycontext "notekeeper/internal/delivery/context"
	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/domain/service"
	"notekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// timingPassword is hashed once so logins for unknown emails cost one bcrypt comparison too.
const timingPassword = "notekeeper-timing-equalizer"

// authService implements the AuthUsecase interface.
type authService struct {
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	signer       service.TokenSigner
	ledger       service.RefreshTokenLedger
	providers    service.IdentityProviderRegistry
	publisher    service.EventPublisher
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger

	timingHashOnce sync.Once
	timingHash     string
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	UserRepo  repository.UserRepository
	Hasher    service.PasswordHasher
	Signer    service.TokenSigner
	Ledger    service.RefreshTokenLedger
	Providers service.IdentityProviderRegistry
	Publisher service.EventPublisher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		signer:       params.Signer,
		ledger:       params.Ledger,
		providers:    params.Providers,
		publisher:    params.Publisher,
		storeTimeout: params.Config.Auth.StoreTimeout,
		now:          time.Now,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a local account with role user and signs it in.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.AuthOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	_, err := srv.findByEmail(ctx, email)
	switch {
	case err == nil:
		srv.log(ctx).Warn("Registration rejected, email taken", slog.String("email", email))

		return nil, errors.Wrap(domainerrors.ErrUserAlreadyExists, "registration failed")
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, storeFailure(srv.log(ctx), err, "failed to check email during registration")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, "failed to hash password")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = entity.DefaultNameFromEmail(email)
	}

	newUser := &entity.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         entity.RoleUser,
	}
	if err := srv.createUser(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, errors.Wrap(domainerrors.ErrUserAlreadyExists, "registration failed")
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to create user during registration")
	}

	tokens, err := srv.issueTokens(ctx, newUser)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Registration completed", slog.Any("userID", newUser.ID))
	srv.publish(ctx, &service.AuthEvent{Type: service.AuthEventUserRegistered, UserID: newUser.ID.String(), Email: email, Created: true})

	return &usecase.AuthOutput{User: newUser, Token: tokens, Created: true}, nil
}

// Login checks local credentials. Unknown email, OAuth-only account and wrong password fail identically.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.hasher.Check(input.Password, srv.timingHashValue())

			return nil, srv.unauthorized(ctx, "login failed", "unknown email", slog.String("email", email))
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to load user during login")
	}

	if !user.HasPassword() {
		srv.hasher.Check(input.Password, srv.timingHashValue())

		return nil, srv.unauthorized(ctx, "login failed", "account has no password", slog.Any("userID", user.ID))
	}
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		return nil, srv.unauthorized(ctx, "login failed", "password mismatch", slog.Any("userID", user.ID))
	}

	tokens, err := srv.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))
	srv.publish(ctx, &service.AuthEvent{Type: service.AuthEventUserLoggedIn, UserID: user.ID.String(), Email: email})

	return &usecase.AuthOutput{User: user, Token: tokens}, nil
}

// Refresh redeems the refresh token once and issues a new pair. The old token stays consumed.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*entity.TokenPair, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Attempting to refresh session")

	user, err := srv.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, srv.unauthorized(ctx, "refresh failed", "unknown email", slog.String("email", email))
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to load user during refresh")
	}

	err = execStore(ctx, srv.storeTimeout, func(storeCtx context.Context) error {
		return srv.ledger.Redeem(storeCtx, user.ID, input.RefreshToken)
	})
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, srv.unauthorized(ctx, "refresh failed", "refresh token not redeemable", slog.Any("userID", user.ID))
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to redeem refresh token")
	}

	tokens, err := srv.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Session refreshed", slog.Any("userID", user.ID))
	srv.publish(ctx, &service.AuthEvent{Type: service.AuthEventSessionRefreshed, UserID: user.ID.String(), Email: email})

	return tokens, nil
}

// FederatedLogin signs in with an identity provider token, linking or creating the account as needed.
func (srv *authService) FederatedLogin(ctx context.Context, input *usecase.FederatedLoginInput) (*usecase.AuthOutput, error) {
	srv.log(ctx).Info("Handling federated login", slog.String("provider", input.Provider.String()))

	provider, ok := srv.providers.Get(input.Provider)
	if !ok {
		return nil, srv.unauthorized(ctx, "federated login failed", "provider not configured", slog.String("provider", input.Provider.String()))
	}

	identity, err := provider.Verify(ctx, input.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify provider token")
	}
	identity.Email = entity.NormalizeEmail(identity.Email)

	resolution, err := srv.resolveFederatedUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	tokens, err := srv.issueTokens(ctx, resolution.user)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Federated login completed",
		slog.Any("userID", resolution.user.ID),
		slog.String("provider", identity.Provider.String()),
		slog.Bool("created", resolution.created),
		slog.Bool("linked", resolution.linked),
	)
	srv.publish(ctx, &service.AuthEvent{
		Type:     service.AuthEventUserFederated,
		UserID:   resolution.user.ID.String(),
		Email:    resolution.user.Email,
		Provider: identity.Provider.String(),
		Created:  resolution.created,
		Linked:   resolution.linked,
	})

	return &usecase.AuthOutput{User: resolution.user, Token: tokens, Created: resolution.created}, nil
}

type federatedResolution struct {
	user    *entity.User
	created bool
	linked  bool
}

// resolveFederatedUser applies provider id, then email, then create. A lost race on create or
// link means another request just wrote the account, so the lookup runs once more.
func (srv *authService) resolveFederatedUser(ctx context.Context, identity *service.FederatedIdentity) (*federatedResolution, error) {
	resolution, err := srv.resolveOnce(ctx, identity)
	if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrProviderAlreadyLinked) {
		srv.log(ctx).Debug("Federated resolution raced, retrying lookup", slog.Any("error", err))
		resolution, err = srv.resolveOnce(ctx, identity)
	}
	if err == nil {
		return resolution, nil
	}

	switch {
	case errors.Is(err, repository.ErrProviderAlreadyLinked):
		srv.log(ctx).Warn("Email already linked to another provider account",
			slog.String("provider", identity.Provider.String()),
			slog.String("email", identity.Email),
		)

		return nil, errors.Wrap(domainerrors.ErrConflict, "email is linked to another account of this provider")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, errors.Wrap(domainerrors.ErrConflict, "federated account creation conflicted")
	default:
		return nil, storeFailure(srv.log(ctx), err, "failed to resolve federated user")
	}
}

func (srv *authService) resolveOnce(ctx context.Context, identity *service.FederatedIdentity) (*federatedResolution, error) {
	// 1. Provider id.
	user, err := callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.User, error) {
		return srv.userRepo.FindByProviderID(storeCtx, identity.Provider, identity.ProviderID)
	})
	if err == nil {
		return &federatedResolution{user: user}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	// 2. Email: link the provider id onto the existing account.
	user, err = srv.findByEmail(ctx, identity.Email)
	if err == nil {
		err = execStore(ctx, srv.storeTimeout, func(storeCtx context.Context) error {
			return srv.userRepo.LinkProvider(storeCtx, user.ID, identity.Provider, identity.ProviderID)
		})
		if err != nil {
			return nil, err
		}
		if user.ProviderIDs == nil {
			user.ProviderIDs = make(map[entity.Provider]string, 1)
		}
		user.ProviderIDs[identity.Provider] = identity.ProviderID

		return &federatedResolution{user: user, linked: true}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	// 3. Create a passwordless account.
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = entity.DefaultNameFromEmail(identity.Email)
	}
	user = &entity.User{
		Email:       identity.Email,
		Name:        name,
		Role:        entity.RoleUser,
		ProviderIDs: map[entity.Provider]string{identity.Provider: identity.ProviderID},
	}
	if err := srv.createUser(ctx, user); err != nil {
		return nil, err
	}

	return &federatedResolution{user: user, created: true}, nil
}

// issueTokens signs an access token and writes exactly one new refresh token.
func (srv *authService) issueTokens(ctx context.Context, user *entity.User) (*entity.TokenPair, error) {
	accessToken, expiresAt, err := srv.signer.Issue(user.ID)
	if err != nil {
		srv.log(ctx).Error("Failed to sign access token", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, "failed to sign access token")
	}

	refreshToken, err := callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.RefreshToken, error) {
		return srv.ledger.Issue(storeCtx, user.ID)
	})
	if err != nil {
		return nil, storeFailure(srv.log(ctx), err, "failed to issue refresh token")
	}

	return &entity.TokenPair{
		TokenType:    entity.TokenTypeBearer,
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    expiresAt,
	}, nil
}

func (srv *authService) findByEmail(ctx context.Context, email string) (*entity.User, error) {
	return callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.User, error) {
		return srv.userRepo.FindByEmail(storeCtx, email)
	})
}

func (srv *authService) createUser(ctx context.Context, user *entity.User) error {
	return execStore(ctx, srv.storeTimeout, func(storeCtx context.Context) error {
		return srv.userRepo.Create(storeCtx, user)
	})
}

// unauthorized logs the real reason and returns the uniform error.
func (srv *authService) unauthorized(ctx context.Context, message, reason string, attrs ...any) error {
	srv.log(ctx).Warn(message, append([]any{slog.String("reason", reason)}, attrs...)...)

	return errors.Wrap(domainerrors.ErrUnauthorized, message)
}

func (srv *authService) timingHashValue() string {
	srv.timingHashOnce.Do(func() {
		hash, err := srv.hasher.Hash(timingPassword)
		if err != nil {
			srv.logger.Warn("Failed to prepare timing hash", slog.Any("error", err))

			return
		}
		srv.timingHash = hash
	})

	return srv.timingHash
}

// publish is best effort: the token has already been issued, so a broker failure is only logged.
func (srv *authService) publish(ctx context.Context, event *service.AuthEvent) {
	event.EventID = uuid.NewString()
	event.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	event.OccurredAt = srv.now().UTC()

	if err := srv.publisher.PublishAuthEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish auth event", slog.String("type", string(event.Type)), slog.Any("error", err))
	}
}
