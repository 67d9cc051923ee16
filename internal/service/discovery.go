package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/darmiel/clientauth/internal/config"
)

var ErrNoTokenEndpoint = errors.New("discovery document has no token_endpoint")

// DiscoverAudience returns the token endpoint announced by the OpenID provider at issuerURL.
func DiscoverAudience(ctx context.Context, issuerURL string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return "", fmt.Errorf("discovering openid provider '%s': %w", issuerURL, err)
	}
	tokenURL := provider.Endpoint().TokenURL
	if tokenURL == "" {
		return "", ErrNoTokenEndpoint
	}
	return tokenURL, nil
}

// ResolveAudience returns the configured audience, discovering it if only a discovery URL is set.
func ResolveAudience(ctx context.Context, cfg config.AuthenticationConfig) (string, error) {
	if cfg.Audience != "" {
		return cfg.Audience, nil
	}
	return DiscoverAudience(ctx, cfg.DiscoveryURL)
}
