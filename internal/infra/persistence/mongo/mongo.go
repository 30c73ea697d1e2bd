// Package mongo implements the credential store and refresh token storage on MongoDB.
package mongo

import (
	"context"
	"log/slog"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/lifecycle"
	"notekeeper/internal/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/fx"
)

const (
	usersCollection         = "users"
	refreshTokensCollection = "refresh_tokens"
)

// ErrFailedToConnect is returned when every ping attempt failed.
var ErrFailedToConnect = errors.New("failed to connect to mongo")

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New creates the client and returns the configured database. The driver connects lazily;
// reachability is checked with retries when the application starts.
func New(params Params) (*mongo.Database, error) {
	cfg := params.Config.Mongo
	if cfg == nil {
		return nil, errors.New("mongo section is not configured")
	}

	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.URI).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetMaxPoolSize(cfg.MaxPoolSize).
			SetMinPoolSize(cfg.MinPoolSize).
			SetMaxConnIdleTime(cfg.MaxConnIdleTime),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mongo client")
	}
	db := client.Database(cfg.Database)

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := pingWithRetry(ctx, client, cfg.RetryAttempts, cfg.RetryInterval); err != nil {
				return err
			}

			if err := EnsureIndexes(ctx, db); err != nil {
				return err
			}
			params.Logger.Info("MongoDB connected", slog.String("database", cfg.Database))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return db, nil
}

func pingWithRetry(ctx context.Context, client *mongo.Client, attempts int, interval time.Duration) error {
	attempts = max(attempts, 1)

	var lastErr error
	for attempt := range attempts {
		if lastErr = client.Ping(ctx, nil); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(interval):
		}
	}

	return errors.Join(ErrFailedToConnect, lastErr)
}

// EnsureIndexes creates the unique indexes the stores rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndexName),
		},
	}
	for _, provider := range supportedProviders {
		field := providerField(provider)
		userIndexes = append(userIndexes, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(providerIndexPrefix + provider.String()).
				SetPartialFilterExpression(bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}}),
		})
	}

	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return errors.Wrap(err, "failed to create user indexes")
	}

	tokenIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}
	if _, err := db.Collection(refreshTokensCollection).Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return errors.Wrap(err, "failed to create refresh token indexes")
	}

	return nil
}
