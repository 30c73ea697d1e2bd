package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/service"

	"github.com/pkg/errors"
)

const defaultFacebookGraphURL = "https://graph.facebook.com"

type facebookProvider struct {
	graphURL   string
	appSecret  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type facebookUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewFacebookProvider creates the Graph API verifier.
func NewFacebookProvider(graphURL, appSecret string, timeout time.Duration, logger *slog.Logger) service.IdentityProvider {
	if graphURL == "" {
		graphURL = defaultFacebookGraphURL
	}

	return &facebookProvider{
		graphURL:   strings.TrimRight(graphURL, "/"),
		appSecret:  appSecret,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *facebookProvider) Provider() entity.Provider {
	return entity.ProviderFacebook
}

// Verify calls GET /me?fields=id,name,email with the client's token.
func (p *facebookProvider) Verify(ctx context.Context, accessToken string) (*service.FederatedIdentity, error) {
	user, err := p.fetchMe(ctx, accessToken)
	if err != nil {
		p.logger.Warn("Facebook token verification failed", slog.Any("error", err))

		return nil, domainerrors.ErrUnauthorized.WrapMessage("facebook verification failed")
	}

	return &service.FederatedIdentity{
		Provider:   entity.ProviderFacebook,
		ProviderID: user.ID,
		Email:      user.Email,
		Name:       user.Name,
	}, nil
}

func (p *facebookProvider) fetchMe(ctx context.Context, accessToken string) (*facebookUser, error) {
	if accessToken == "" {
		return nil, errors.New("empty access token")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("fields", "id,name,email")
	if p.appSecret != "" {
		query.Set("appsecret_proof", appSecretProof(p.appSecret, accessToken))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.graphURL+"/me?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := bearerClient(ctx, p.httpClient, accessToken).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "graph api request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("graph api returned status %d", resp.StatusCode)
	}

	var user facebookUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "failed to decode graph api response")
	}
	if user.ID == "" {
		return nil, errors.New("graph api response has no id")
	}
	if user.Email == "" {
		return nil, errors.New("facebook account has no email")
	}

	return &user, nil
}

// appSecretProof is the HMAC-SHA256 of the access token keyed by the app secret.
func appSecretProof(appSecret, accessToken string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))

	return hex.EncodeToString(mac.Sum(nil))
}
