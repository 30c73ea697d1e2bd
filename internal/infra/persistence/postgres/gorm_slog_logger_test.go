package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"notekeeper/config"
	deliverycontext "notekeeper/internal/delivery/context"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())

	return line
}

func TestGormSlogLogger_UsesRequestLogger(t *testing.T) {
	var base, scoped bytes.Buffer
	gl := newGormSlogLogger(slog.New(slog.NewJSONHandler(&base, nil)), &config.Config{})

	requestLogger := slog.New(slog.NewJSONHandler(&scoped, nil)).With(slog.String("request_id", "req-42"))
	ctx := deliverycontext.WithLogger(context.Background(), requestLogger)

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("connection reset"))

	assert.Empty(t, base.String())
	line := decodeLogLine(t, &scoped)
	assert.Equal(t, "GORM query failed", line["msg"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "gorm", line["component"])
	assert.Equal(t, "connection reset", line["error"])
}

func TestGormSlogLogger_FallsBackToBaseLogger(t *testing.T) {
	var base bytes.Buffer
	gl := newGormSlogLogger(slog.New(slog.NewJSONHandler(&base, nil)), &config.Config{})

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)
	assert.Empty(t, base.String())

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	line := decodeLogLine(t, &base)
	assert.Equal(t, "GORM slow query", line["msg"])
	assert.Equal(t, "gorm", line["component"])
}

func TestGormSlogLogger_SlowThresholdFollowsStoreTimeout(t *testing.T) {
	gl, ok := newGormSlogLogger(nil, &config.Config{Auth: &config.AuthConfig{StoreTimeout: 3 * time.Second}}).(*gormSlogLogger)
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, gl.slowThreshold)

	gl, ok = newGormSlogLogger(nil, nil).(*gormSlogLogger)
	require.True(t, ok)
	assert.Equal(t, defaultGormSlowThreshold, gl.slowThreshold)
}

func TestGormSlogLogger_ParamsFilter(t *testing.T) {
	quiet, ok := newGormSlogLogger(nil, &config.Config{}).(*gormSlogLogger)
	require.True(t, ok)
	sql, params := quiet.ParamsFilter(context.Background(), "SELECT $1", "secret-token")
	assert.Equal(t, "SELECT $1", sql)
	assert.Nil(t, params)

	debug, ok := newGormSlogLogger(nil, &config.Config{Env: config.EnvConfig{Debug: true}}).(*gormSlogLogger)
	require.True(t, ok)
	_, params = debug.ParamsFilter(context.Background(), "SELECT $1", "secret-token")
	assert.Equal(t, []any{"secret-token"}, params)
}
