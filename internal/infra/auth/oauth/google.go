package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/service"

	"github.com/pkg/errors"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type googleProvider struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGoogleProvider creates the userinfo verifier. An empty endpoint uses Google's default.
func NewGoogleProvider(endpoint string, timeout time.Duration, logger *slog.Logger) service.IdentityProvider {
	return &googleProvider{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *googleProvider) Provider() entity.Provider {
	return entity.ProviderGoogle
}

// Verify calls the oauth2/v2 userinfo endpoint with the client's token.
func (p *googleProvider) Verify(ctx context.Context, accessToken string) (*service.FederatedIdentity, error) {
	info, err := p.fetchUserinfo(ctx, accessToken)
	if err != nil {
		p.logger.Warn("Google token verification failed", slog.Any("error", err))

		return nil, domainerrors.ErrUnauthorized.WrapMessage("google verification failed")
	}

	return &service.FederatedIdentity{
		Provider:   entity.ProviderGoogle,
		ProviderID: info.Id,
		Email:      info.Email,
		Name:       info.Name,
	}, nil
}

func (p *googleProvider) fetchUserinfo(ctx context.Context, accessToken string) (*oauth2api.Userinfo, error) {
	if accessToken == "" {
		return nil, errors.New("empty access token")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opts := []option.ClientOption{option.WithHTTPClient(bearerClient(ctx, p.httpClient, accessToken))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create oauth2 service")
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "userinfo request failed")
	}
	if info.Id == "" {
		return nil, errors.New("userinfo response has no id")
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}
	// An unverified address must not be allowed to claim an existing account.
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return nil, errors.New("google email is not verified")
	}

	return info, nil
}
