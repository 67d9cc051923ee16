package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"

	"github.com/darmiel/clientauth/internal/buildinfo"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/keys"
)

const (
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBytes limits the size of a fetched key set document.
	DefaultMaxBytes int64 = 1 << 20
)

var (
	ErrInvalidReference = errors.New("invalid key set reference")
	ErrUnexpectedStatus = errors.New("unexpected status fetching key set")
)

var _ core.KeySetResolver = (*Resolver)(nil)

// Resolver fetches remote JSON Web Key Sets. Every call fetches the document again,
// the resolver keeps no cache between calls.
type Resolver struct {
	httpClient *http.Client
	logger     zerolog.Logger
	maxBytes   int64
	allowHTTP  bool
}

type Config struct {
	// Timeout for a single fetch, defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxBytes limits the response body, defaults to DefaultMaxBytes.
	MaxBytes int64

	// AllowInsecureHTTP permits plain http:// references (useful for local development only).
	AllowInsecureHTTP bool

	// HTTPClient overrides the client used for fetching. Timeout is ignored if set.
	HTTPClient *http.Client
}

func NewResolver(cfg Config, logger zerolog.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Resolver{
		httpClient: httpClient,
		logger:     logger,
		maxBytes:   cfg.MaxBytes,
		allowHTTP:  cfg.AllowInsecureHTTP,
	}
}

// Resolve fetches the key set at reference and returns its signing keys.
// Keys marked for encryption ("use": "enc") and keys that cannot be converted are skipped.
// A set without usable keys is not an error, it contributes no keys.
func (r *Resolver) Resolve(ctx context.Context, reference string) ([]core.VerificationKey, error) {
	u, err := url.Parse(reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !r.allowHTTP {
			return nil, fmt.Errorf("%w: insecure scheme in '%s'", ErrInvalidReference, reference)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme '%s'", ErrInvalidReference, u.Scheme)
	}

	set, err := r.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	logger := r.logger.With().Str("jwks_url", u.String()).Logger()

	result := make([]core.VerificationKey, 0, len(set.Keys))
	for idx, jwk := range set.Keys {
		if jwk.Use != "" && jwk.Use != "sig" {
			logger.Debug().Int("index", idx).Str("use", jwk.Use).Msg("skipping non-signing key")
			continue
		}
		key, err := keys.FromJOSE(jwk)
		if err != nil {
			logger.Warn().Err(err).Int("index", idx).Str("kid", jwk.KeyID).Msg("skipping unusable key")
			continue
		}
		result = append(result, key)
	}
	if len(result) == 0 {
		logger.Warn().Int("published", len(set.Keys)).Msg("key set contains no usable signing keys")
		return result, nil
	}

	logger.Debug().Int("keys", len(result)).Msg("resolved key set")
	return result, nil
}

func (r *Resolver) fetch(ctx context.Context, target string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/jwk-set+json, application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching key set: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, r.maxBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding key set: %w", err)
	}
	return &set, nil
}
