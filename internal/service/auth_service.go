package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/clientauth/internal/audit"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/metrics"
)

const AuthenticateAction = "client.authenticate"

// AuthenticationService authenticates clients at the token endpoint: it looks up
// the client's registered secrets and hands them to the validator.
type AuthenticationService struct {
	registry  core.ClientRegistry
	validator Evaluator
	auditor   core.Auditor
	metrics   *metrics.Recorder
	now       func() time.Time
}

func NewAuthenticationService(
	registry core.ClientRegistry,
	validator Evaluator,
	auditor core.Auditor,
	recorder *metrics.Recorder,
) *AuthenticationService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &AuthenticationService{
		registry:  registry,
		validator: validator,
		auditor:   auditor,
		metrics:   recorder,
		now:       time.Now,
	}
}

// Authenticate validates the presented credential. A rejected credential is not
// an error: the result reports Authenticated=false. Errors are only returned when
// the registry fails.
func (s *AuthenticationService) Authenticate(ctx context.Context, parsed core.ParsedSecret) (*AuthenticateResult, error) {
	logger := log.Ctx(ctx).With().Str("client_id", parsed.ID).Logger()

	start := s.now()
	auditEntry := core.AuditEntry{
		ID:             core.CorrelationID(ctx),
		Time:           start,
		Action:         AuthenticateAction,
		ClientID:       parsed.ID,
		CredentialType: parsed.Type,
	}
	// only assertions are fingerprinted, shared secrets never reach the audit log
	if token, ok := parsed.Credential.(string); ok && parsed.Type == core.CredentialTypeJWTBearer {
		auditEntry.AssertionFingerprint = audit.CalculateFingerprint(token)
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for client authentication")
		}
	}()

	secrets, err := s.registry.FindSecrets(ctx, parsed.ID)
	if err != nil {
		s.metrics.ObserveRegistryError()
		auditEntry.Reason = core.ReasonKeyResolutionFailure
		auditEntry.Error = "client registry unavailable"
		logger.Error().Err(err).Msg("client registry lookup failed")
		return nil, httpError(http.StatusInternalServerError,
			fmt.Errorf("%w: %w", ErrRegistryUnavailable, err))
	}

	outcome := s.validator.Evaluate(ctx, secrets, parsed)
	s.metrics.ObserveAuthentication(outcome, s.now().Sub(start))

	auditEntry.Authenticated = outcome.Success
	auditEntry.Reason = outcome.Reason
	if outcome.Err != nil {
		auditEntry.Error = outcome.Err.Error()
	}
	if outcome.Assertion != nil {
		auditEntry.KeyID = outcome.Assertion.KeyID
	}

	if outcome.Success {
		logger.Info().Msg("client authenticated")
	} else {
		logger.Warn().Stringer("reason", outcome.Reason).Msg("client authentication failed")
	}

	return &AuthenticateResult{
		Authenticated: outcome.Success,
		ClientID:      parsed.ID,
		Outcome:       outcome,
	}, nil
}
