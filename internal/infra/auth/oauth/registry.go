package oauth

import (
	"log/slog"

	"notekeeper/config"
	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/service"

	"go.uber.org/fx"
)

// Registry maps each supported provider to its verifier. It is built once and read-only afterwards.
type Registry struct {
	providers map[entity.Provider]service.IdentityProvider
}

// RegistryParams holds dependencies for the provider registry, injected by Fx.
type RegistryParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewRegistry builds the facebook and google verifiers from configuration.
func NewRegistry(params RegistryParams) service.IdentityProviderRegistry {
	cfg := params.Config.OAuth

	return NewRegistryOf(
		NewFacebookProvider(cfg.Facebook.GraphURL, cfg.Facebook.AppSecret, cfg.Timeout, params.Logger),
		NewGoogleProvider(cfg.Google.Endpoint, cfg.Timeout, params.Logger),
	)
}

// NewRegistryOf builds a registry from explicit verifiers.
func NewRegistryOf(providers ...service.IdentityProvider) *Registry {
	registry := &Registry{providers: make(map[entity.Provider]service.IdentityProvider, len(providers))}
	for _, p := range providers {
		registry.providers[p.Provider()] = p
	}

	return registry
}

// Get returns the verifier for provider.
func (r *Registry) Get(provider entity.Provider) (service.IdentityProvider, bool) {
	p, ok := r.providers[provider]

	return p, ok
}
