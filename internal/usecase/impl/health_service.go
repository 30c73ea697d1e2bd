package impl

import (
	"context"
	"log/slog"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/usecase"

	"go.uber.org/fx"
)

type healthService struct {
	userRepo     repository.UserRepository
	storeTimeout time.Duration
	logger       *slog.Logger
}

// HealthServiceParams holds dependencies for HealthService, injected by Fx.
type HealthServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	Config   *config.Config
	Logger   *slog.Logger
}

// NewHealthService is the constructor for healthService.
func NewHealthService(params HealthServiceParams) usecase.HealthUsecase {
	return &healthService{
		userRepo:     params.UserRepo,
		storeTimeout: params.Config.Auth.StoreTimeout,
		logger:       params.Logger,
	}
}

// Check pings the credential store.
func (srv *healthService) Check(ctx context.Context) error {
	err := execStore(ctx, srv.storeTimeout, srv.userRepo.Ping)
	if err != nil {
		return storeFailure(srv.logger, err, "credential store ping failed")
	}

	return nil
}
