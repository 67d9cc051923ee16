package assertion

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/darmiel/clientauth/internal/core"
)

// SupportedAlgorithms are the signing algorithms accepted for client assertions.
// "none" is never accepted.
var SupportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
	"HS256", "HS384", "HS512",
}

var (
	ErrEmptyAudience   = errors.New("audience must not be empty")
	ErrNoMaterializer  = errors.New("key materializer must not be nil")
	ErrNoMatchingKey   = errors.New("no trusted key accepts the token algorithm")
	ErrSignatureNoKey  = errors.New("signature did not verify against any trusted key")
	ErrSubjectMismatch = errors.New("'sub' and 'iss' of the client assertion must both be the client id")
	ErrPanic           = errors.New("validation panicked")
)

// Validator authenticates clients by their private_key_jwt assertions.
// Its only state is fixed at construction, so it is safe for concurrent use.
type Validator struct {
	audience     string
	materializer core.KeyMaterializer
	logger       zerolog.Logger
	clockSkew    time.Duration
	now          func() time.Time
}

type Option func(*Validator)

// WithClockSkew tolerates clock differences when checking exp and nbf.
func WithClockSkew(skew time.Duration) Option {
	return func(v *Validator) {
		v.clockSkew = skew
	}
}

// WithClock overrides the time source used for claim validation.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator for assertions addressed to audience,
// usually the token endpoint URL of this server.
func NewValidator(
	audience string,
	materializer core.KeyMaterializer,
	logger zerolog.Logger,
	opts ...Option,
) (*Validator, error) {
	if audience == "" {
		return nil, ErrEmptyAudience
	}
	if materializer == nil {
		return nil, ErrNoMaterializer
	}
	v := &Validator{
		audience:     audience,
		materializer: materializer,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Audience returns the configured audience.
func (v *Validator) Audience() string {
	return v.audience
}

// Validate reports whether parsed authenticates the client owning secrets.
// The failure reason is only logged.
func (v *Validator) Validate(ctx context.Context, secrets []core.RegisteredSecret, parsed core.ParsedSecret) bool {
	return v.Evaluate(ctx, secrets, parsed).Success
}

// Evaluate runs the validation pipeline and returns the detailed outcome:
// credential type, credential format, key resolution, signature and claims,
// and finally the binding of 'sub' to 'iss'. The first failing stage ends the attempt.
func (v *Validator) Evaluate(
	ctx context.Context,
	secrets []core.RegisteredSecret,
	parsed core.ParsedSecret,
) (outcome core.Outcome) {
	logger := v.logger.With().
		Str("client_id", parsed.ID).
		Str("credential_type", parsed.Type).
		Logger()

	// the failure reason reported if the running stage panics
	stage := core.ReasonInvalidFormat
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Stringer("reason", stage).
				Msg("client assertion validation panicked")
			outcome = core.Failed(stage, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	token, reason, err := Extract(parsed)
	switch reason {
	case core.ReasonNone:
	case core.ReasonNotApplicable:
		logger.Debug().Err(err).Msg("credential is not a client assertion")
		return core.Failed(reason, err)
	default:
		logger.Error().Err(err).Stringer("reason", reason).Msg("client assertion has an invalid format")
		return core.Failed(reason, err)
	}

	stage = core.ReasonKeyResolutionFailure
	trustedKeys, err := v.materializer.MaterializeAll(ctx, secrets)
	if err != nil {
		logger.Error().Err(err).Stringer("reason", stage).Msg("could not resolve trusted keys")
		return core.Failed(core.ReasonKeyResolutionFailure, err)
	}
	if len(trustedKeys) == 0 {
		logger.Error().Stringer("reason", core.ReasonNoTrustedKeys).
			Msg("there are no keys available to validate the client assertion")
		return core.Failed(core.ReasonNoTrustedKeys, nil)
	}

	stage = core.ReasonSignatureOrClaimInvalid
	assertion, err := v.verify(token, parsed.ID, trustedKeys)
	if err != nil {
		logger.Error().Err(err).Stringer("reason", stage).Msg("client assertion token validation failed")
		return core.Failed(core.ReasonSignatureOrClaimInvalid, err)
	}

	stage = core.ReasonSubjectIssuerMismatch
	if assertion.Subject != assertion.Issuer {
		logger.Error().
			Str("sub", assertion.Subject).
			Str("iss", assertion.Issuer).
			Stringer("reason", stage).
			Msg("client assertion subject does not match its issuer")
		return core.Failed(core.ReasonSubjectIssuerMismatch, ErrSubjectMismatch)
	}

	logger.Debug().Str("kid", assertion.KeyID).Str("alg", assertion.Algorithm).Msg("client assertion validated")
	return core.Succeeded(assertion)
}

// verify checks the signature against the trusted keys and validates the claims.
// A key whose signature check fails is skipped, any other error is terminal.
func (v *Validator) verify(token, clientID string, trustedKeys []core.VerificationKey) (*core.ClientAssertion, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods(SupportedAlgorithms),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(clientID),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.now),
	)

	unverified, _, err := parser.ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return nil, err
	}
	alg, _ := unverified.Header["alg"].(string)
	kid, _ := unverified.Header["kid"].(string)

	candidates := candidateKeys(trustedKeys, alg, kid)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrNoMatchingKey, alg)
	}

	var signatureErrs []error
	for _, key := range candidates {
		claims := &jwt.RegisteredClaims{}
		verified, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key.Key, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
				signatureErrs = append(signatureErrs, err)
				continue
			}
			return nil, err
		}
		if !verified.Valid {
			return nil, errors.New("token is not valid")
		}
		return toAssertion(token, alg, kid, key, claims), nil
	}
	return nil, fmt.Errorf("%w (%d tried): %w", ErrSignatureNoKey, len(candidates), errors.Join(signatureErrs...))
}

// candidateKeys returns the keys accepting alg; keys whose id matches kid come first.
func candidateKeys(trustedKeys []core.VerificationKey, alg, kid string) []core.VerificationKey {
	var matching, others []core.VerificationKey
	for _, key := range trustedKeys {
		if !key.Accepts(alg) {
			continue
		}
		if kid != "" && key.KeyID == kid {
			matching = append(matching, key)
		} else {
			others = append(others, key)
		}
	}
	return append(matching, others...)
}

func toAssertion(raw, alg, kid string, key core.VerificationKey, claims *jwt.RegisteredClaims) *core.ClientAssertion {
	assertion := &core.ClientAssertion{
		Raw:       raw,
		KeyID:     key.KeyID,
		Algorithm: alg,
		Issuer:    claims.Issuer,
		Subject:   claims.Subject,
		Audience:  claims.Audience,
	}
	if assertion.KeyID == "" {
		assertion.KeyID = kid
	}
	if claims.ExpiresAt != nil {
		assertion.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.NotBefore != nil {
		nbf := claims.NotBefore.Time
		assertion.NotBefore = &nbf
	}
	return assertion
}
