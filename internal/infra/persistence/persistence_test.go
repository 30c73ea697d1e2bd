package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"notekeeper/config"
	"notekeeper/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func testParams(t *testing.T, driver string) Params {
	return Params{
		Lifecycle: fxtest.NewLifecycle(t),
		Config:    &config.Config{Storage: config.StorageConfig{Driver: driver}},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestNew_Memory(t *testing.T) {
	repos, err := New(testParams(t, config.StorageDriverMemory))
	require.NoError(t, err)
	require.NotNil(t, repos.Users)
	require.NotNil(t, repos.RefreshTokens)

	ctx := context.Background()
	user := &entity.User{Email: "alice@x.com", Role: entity.RoleUser}
	require.NoError(t, repos.Users.Create(ctx, user))
	assert.NoError(t, repos.Users.Ping(ctx))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(testParams(t, "cassandra"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestNew_MissingSection(t *testing.T) {
	_, err := New(testParams(t, config.StorageDriverPostgres))
	assert.Error(t, err)

	_, err = New(testParams(t, config.StorageDriverMongo))
	assert.Error(t, err)
}
