package oauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "provider-access-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newGraphServer(t *testing.T, appSecret string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" || r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"message": "invalid token"}})

			return
		}
		if appSecret != "" && r.URL.Query().Get("appsecret_proof") != appSecretProof(appSecret, testToken) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "bad proof"}})

			return
		}
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		writeJSON(w, http.StatusOK, map[string]string{"id": "fb-42", "name": "Bob", "email": "Bob@Example.com"})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFacebookProvider_Verify(t *testing.T) {
	tests := []struct {
		name      string
		appSecret string
		token     string
		wantErr   bool
	}{
		{name: "valid token", token: testToken},
		{name: "valid token with app secret proof", appSecret: "s3cret", token: testToken},
		{name: "rejected token", token: "forged", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGraphServer(t, tt.appSecret)
			provider := NewFacebookProvider(srv.URL, tt.appSecret, 2*time.Second, discardLogger())

			identity, err := provider.Verify(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized))

				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.ProviderFacebook, identity.Provider)
			assert.Equal(t, "fb-42", identity.ProviderID)
			assert.Equal(t, "Bob@Example.com", identity.Email)
			assert.Equal(t, "Bob", identity.Name)
		})
	}
}

func TestFacebookProvider_MissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "fb-7", "name": "No Mail"})
	}))
	defer srv.Close()

	provider := NewFacebookProvider(srv.URL, "", 2*time.Second, discardLogger())
	_, err := provider.Verify(context.Background(), testToken)
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized))
}

func TestFacebookProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	provider := NewFacebookProvider(srv.URL, "", 50*time.Millisecond, discardLogger())
	_, err := provider.Verify(context.Background(), testToken)
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized))
}

func newUserinfoServer(t *testing.T, body map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v2/userinfo" || r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "invalid"}})

			return
		}
		writeJSON(w, http.StatusOK, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestGoogleProvider_Verify(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		body    map[string]any
		wantErr bool
	}{
		{
			name:  "verified account",
			token: testToken,
			body:  map[string]any{"id": "g-1", "email": "alice@example.com", "name": "Alice", "verified_email": true},
		},
		{
			name:    "unverified email",
			token:   testToken,
			body:    map[string]any{"id": "g-2", "email": "mallory@example.com", "verified_email": false},
			wantErr: true,
		},
		{
			name:    "missing email",
			token:   testToken,
			body:    map[string]any{"id": "g-3"},
			wantErr: true,
		},
		{
			name:    "rejected token",
			token:   "forged",
			body:    map[string]any{"id": "g-1", "email": "alice@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUserinfoServer(t, tt.body)
			provider := NewGoogleProvider(srv.URL+"/", 2*time.Second, discardLogger())

			identity, err := provider.Verify(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized))

				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.ProviderGoogle, identity.Provider)
			assert.Equal(t, "g-1", identity.ProviderID)
			assert.Equal(t, "alice@example.com", identity.Email)
			assert.Equal(t, "Alice", identity.Name)
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistryOf(
		NewFacebookProvider("", "", time.Second, discardLogger()),
		NewGoogleProvider("", time.Second, discardLogger()),
	)

	fb, ok := registry.Get(entity.ProviderFacebook)
	require.True(t, ok)
	assert.Equal(t, entity.ProviderFacebook, fb.Provider())

	g, ok := registry.Get(entity.ProviderGoogle)
	require.True(t, ok)
	assert.Equal(t, entity.ProviderGoogle, g.Provider())

	_, ok = registry.Get(entity.Provider("github"))
	assert.False(t, ok)
}
