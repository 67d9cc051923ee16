package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/darmiel/clientauth/internal/assertion"
	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/jwks"
	"github.com/darmiel/clientauth/internal/keys"
)

// BuildValidator wires the key set resolver, the key materializer and the
// assertion validator from cfg. The audience is discovered if not configured.
func BuildValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*assertion.Validator, error) {
	audience, err := ResolveAudience(ctx, cfg.Authentication)
	if err != nil {
		return nil, fmt.Errorf("resolving audience: %w", err)
	}

	resolver := jwks.NewResolver(jwks.Config{
		Timeout:           cfg.JWKS.Timeout,
		MaxBytes:          cfg.JWKS.MaxBytes,
		AllowInsecureHTTP: cfg.JWKS.AllowInsecureHTTP,
	}, logger.With().Str("component", "jwks").Logger())

	materializer := keys.NewMaterializer(
		logger.With().Str("component", "keys").Logger(),
		keys.WithResolver(resolver),
	)

	validator, err := assertion.NewValidator(
		audience,
		materializer,
		logger.With().Str("component", "validator").Logger(),
		assertion.WithClockSkew(cfg.Authentication.ClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("creating validator: %w", err)
	}
	return validator, nil
}
