package impl

import (
	"context"
	"log/slog"
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

// userService implements the UserUsecase interface.
type userService struct {
	userRepo     repository.UserRepository
	signer       service.TokenSigner
	storeTimeout time.Duration
	logger       *slog.Logger
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	Signer   service.TokenSigner
	Config   *config.Config
	Logger   *slog.Logger
}

// NewUserService is the constructor for userService.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		userRepo:     params.UserRepo,
		signer:       params.Signer,
		storeTimeout: params.Config.Auth.StoreTimeout,
		logger:       params.Logger,
	}
}

func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Authenticate reads the role from the store on every request so promotions apply immediately.
func (srv *userService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	userID, err := srv.signer.Verify(accessToken)
	if err != nil {
		srv.log(ctx).Debug("Access token rejected", slog.Any("error", err))

		return nil, errors.Wrap(err, "authentication failed")
	}

	user, err := srv.findByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Access token subject no longer exists", slog.Any("userID", userID))

			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "authentication failed")
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to load token subject")
	}

	return user, nil
}

// GetUser loads a user by id.
func (srv *userService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := srv.findByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "failed to get user")
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to get user")
	}

	return user, nil
}

// FindUserByEmail loads a user by normalized email.
func (srv *userService) FindUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)

	user, err := callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.User, error) {
		return srv.userRepo.FindByEmail(storeCtx, email)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "failed to find user by email")
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to find user by email")
	}

	return user, nil
}

// ChangeRole sets a user's role. Only trusted tooling calls it.
func (srv *userService) ChangeRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	if !role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("unknown role " + role.String())
	}
	email = entity.NormalizeEmail(email)

	user, err := callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.User, error) {
		return srv.userRepo.UpdateRole(storeCtx, email, role)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "failed to change role")
		}

		return nil, storeFailure(srv.log(ctx), err, "failed to change role")
	}
	srv.log(ctx).Info("User role changed", slog.Any("userID", user.ID), slog.String("role", role.String()))

	return user, nil
}

func (srv *userService) findByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return callStore(ctx, srv.storeTimeout, func(storeCtx context.Context) (*entity.User, error) {
		return srv.userRepo.FindByID(storeCtx, id)
	})
}
