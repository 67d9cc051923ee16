package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"

	"github.com/darmiel/clientauth/internal/core"
)

var (
	ErrNoResolver         = errors.New("no key set resolver configured")
	ErrUnsupportedKeyType = errors.New("unsupported public key type")
)

var _ core.KeyMaterializer = (*Materializer)(nil)

// Materializer converts registered secrets into verification keys.
// It holds no per-call state and is safe for concurrent use.
type Materializer struct {
	resolver core.KeySetResolver
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Materializer)

// WithResolver sets the capability used for JWKSReference secrets.
func WithResolver(resolver core.KeySetResolver) Option {
	return func(m *Materializer) {
		m.resolver = resolver
	}
}

// WithClock overrides the clock used to skip expired secrets.
func WithClock(now func() time.Time) Option {
	return func(m *Materializer) {
		m.now = now
	}
}

func NewMaterializer(logger zerolog.Logger, opts ...Option) *Materializer {
	m := &Materializer{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaterializeAll returns the keys of all secrets in order.
// The first resolution error aborts and is returned.
func (m *Materializer) MaterializeAll(ctx context.Context, secrets []core.RegisteredSecret) ([]core.VerificationKey, error) {
	var result []core.VerificationKey
	for _, secret := range secrets {
		keys, err := m.Materialize(ctx, secret)
		if err != nil {
			return nil, err
		}
		result = append(result, keys...)
	}
	return result, nil
}

// Materialize converts a single secret. Malformed certificates or JWKs yield no keys
// and are only logged, reference resolution errors are returned.
func (m *Materializer) Materialize(ctx context.Context, secret core.RegisteredSecret) ([]core.VerificationKey, error) {
	logger := m.logger.With().
		Str("client_id", secret.ClientID).
		Str("secret_type", string(secret.Type)).
		Logger()

	if secret.Expired(m.now()) {
		logger.Debug().Time("expiration", *secret.Expiration).Msg("skipping expired secret")
		return nil, nil
	}

	switch secret.Type {
	case core.SecretTypeX509CertificateBase64:
		key, err := FromCertificate(secret.Value)
		if err != nil {
			logger.Error().Err(err).Msg("could not parse certificate secret")
			return nil, nil
		}
		return []core.VerificationKey{key}, nil

	case core.SecretTypeSharedSecret:
		if secret.Value == "" {
			logger.Error().Msg("shared secret has an empty value")
			return nil, nil
		}
		return []core.VerificationKey{{
			Algorithm: core.AlgorithmFamilyHMAC,
			Key:       []byte(secret.Value),
		}}, nil

	case core.SecretTypeJSONWebKey:
		key, err := FromJSONWebKey([]byte(secret.Value))
		if err != nil {
			logger.Error().Err(err).Msg("could not parse json web key secret")
			return nil, nil
		}
		return []core.VerificationKey{key}, nil

	case core.SecretTypeJWKSReference:
		if m.resolver == nil {
			return nil, fmt.Errorf("resolving '%s': %w", secret.Value, ErrNoResolver)
		}
		keys, err := m.resolver.Resolve(ctx, secret.Value)
		if err != nil {
			return nil, fmt.Errorf("resolving key set for client '%s': %w", secret.ClientID, err)
		}
		return keys, nil

	default:
		logger.Debug().Msg("ignoring secret of unsupported type")
		return nil, nil
	}
}

// FromCertificate parses a base64 DER or PEM encoded X.509 certificate and
// returns its public key. The key id is the base64url SHA-1 thumbprint (x5t).
func FromCertificate(value string) (core.VerificationKey, error) {
	der, err := decodeCertificate(value)
	if err != nil {
		return core.VerificationKey{}, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return core.VerificationKey{}, fmt.Errorf("parsing certificate: %w", err)
	}
	family, err := familyOf(cert.PublicKey)
	if err != nil {
		return core.VerificationKey{}, err
	}
	thumbprint := sha1.Sum(cert.Raw)
	return core.VerificationKey{
		KeyID:     base64.RawURLEncoding.EncodeToString(thumbprint[:]),
		Algorithm: family,
		Key:       cert.PublicKey,
	}, nil
}

func decodeCertificate(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("empty certificate")
	}
	if strings.HasPrefix(value, "-----BEGIN") {
		block, _ := pem.Decode([]byte(value))
		if block == nil || block.Type != "CERTIFICATE" {
			return nil, errors.New("no CERTIFICATE block found in PEM data")
		}
		return block.Bytes, nil
	}
	der, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 certificate: %w", err)
	}
	return der, nil
}

// FromJSONWebKey parses a single JWK. Private keys are reduced to their public part.
func FromJSONWebKey(data []byte) (core.VerificationKey, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return core.VerificationKey{}, fmt.Errorf("parsing json web key: %w", err)
	}
	return FromJOSE(jwk)
}

// FromJOSE converts a decoded go-jose key into a verification key.
func FromJOSE(jwk jose.JSONWebKey) (core.VerificationKey, error) {
	// go-jose does not consider symmetric keys valid
	if secret, symmetric := jwk.Key.([]byte); symmetric {
		if len(secret) == 0 {
			return core.VerificationKey{}, errors.New("empty symmetric json web key")
		}
	} else {
		if !jwk.Valid() {
			return core.VerificationKey{}, errors.New("invalid json web key")
		}
		if !jwk.IsPublic() {
			jwk = jwk.Public()
		}
	}
	family, err := familyOf(jwk.Key)
	if err != nil {
		return core.VerificationKey{}, err
	}
	alg := family
	if jwk.Algorithm != "" {
		if core.AlgorithmFamily(jwk.Algorithm) != family {
			return core.VerificationKey{}, fmt.Errorf("key algorithm '%s' does not match key type %s", jwk.Algorithm, family)
		}
		alg = jwk.Algorithm
	}
	return core.VerificationKey{
		KeyID:     jwk.KeyID,
		Algorithm: alg,
		Key:       jwk.Key,
	}, nil
}

func familyOf(key any) (string, error) {
	switch key.(type) {
	case *rsa.PublicKey:
		return core.AlgorithmFamilyRSA, nil
	case *ecdsa.PublicKey:
		return core.AlgorithmFamilyEC, nil
	case ed25519.PublicKey:
		return core.AlgorithmFamilyEdDSA, nil
	case []byte:
		return core.AlgorithmFamilyHMAC, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
	}
}
