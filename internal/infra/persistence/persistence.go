// Package persistence selects the storage backend named by storage.driver.
package persistence

import (
	"log/slog"

	"notekeeper/config"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/errors"
	"notekeeper/internal/infra/persistence/memory"
	"notekeeper/internal/infra/persistence/mongo"
	"notekeeper/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// Repositories is the pair of stores every backend provides.
type Repositories struct {
	fx.Out

	Users         repository.UserRepository
	RefreshTokens repository.RefreshTokenRepository
}

// New opens the configured backend and returns its repositories.
func New(params Params) (Repositories, error) {
	driver := params.Config.Storage.Driver
	params.Logger.Info("Opening credential store", slog.String("driver", driver))

	switch driver {
	case config.StorageDriverPostgres:
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Repositories{}, err
		}

		return Repositories{
			Users:         postgres.NewUserRepository(db),
			RefreshTokens: postgres.NewRefreshTokenRepository(db),
		}, nil

	case config.StorageDriverMongo:
		db, err := mongo.New(mongo.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Repositories{}, err
		}

		return Repositories{
			Users:         mongo.NewUserRepository(db),
			RefreshTokens: mongo.NewRefreshTokenRepository(db),
		}, nil

	case config.StorageDriverMemory:
		params.Logger.Warn("Using in-memory credential store; data is lost on restart")
		store := memory.NewStore()

		return Repositories{
			Users:         memory.NewUserRepository(store),
			RefreshTokens: memory.NewRefreshTokenRepository(store),
		}, nil

	default:
		return Repositories{}, errors.Errorf("unknown storage driver %q", driver)
	}
}
