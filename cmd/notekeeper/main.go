package main

import (
	"context"
	"log/slog"
	"os"

	"notekeeper/config"
	"notekeeper/internal/delivery"
	"notekeeper/internal/delivery/api"
	apimiddleware "notekeeper/internal/delivery/api/middleware"
	"notekeeper/internal/delivery/api/router/handler"
	"notekeeper/internal/infra/auth"
	"notekeeper/internal/infra/auth/oauth"
	"notekeeper/internal/infra/cache"
	logs "notekeeper/internal/infra/log"
	"notekeeper/internal/infra/persistence"
	"notekeeper/internal/infra/pubsub"
	"notekeeper/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
			// Constructing the janitor registers its lifecycle hooks.
			func(*impl.TokenJanitor) {},
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		persistence.New,
		cache.New,
		cache.NewTokenBucket,
		pubsub.NewEventPublisher,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			auth.NewRefreshTokenLedger,
			oauth.NewRegistry,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewUserService,
			impl.NewHealthService,
			impl.NewTokenJanitor,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			apimiddleware.NewAuthMiddleware,
			apimiddleware.NewRateLimitMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewUserHandler,
			handler.NewHealthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
