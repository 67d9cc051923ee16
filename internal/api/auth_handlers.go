package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/clientauth/internal/api/presenter"
	"github.com/darmiel/clientauth/internal/assertion"
)

// maxFormBytes bounds the size of an authentication request body.
const maxFormBytes = 64 << 10

// handleAuthenticate authenticates a client from the standard token endpoint credential fields.
// Every rejection answers the same invalid_client error, the reason is only logged and audited.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	parsed, err := assertion.ParseRequest(r)
	if err != nil {
		if errors.Is(err, assertion.ErrNoCredential) {
			logger.Warn().Msg("request carries no client credential")
			presenter.Error(w, r, presenter.ErrorInvalidClient, http.StatusUnauthorized)
			return
		}
		logger.Warn().Err(err).Msg("failed to parse client credential")
		presenter.Error(w, r, presenter.ErrorInvalidRequest, http.StatusBadRequest)
		return
	}

	result, err := s.authService.Authenticate(ctx, *parsed)
	if err != nil {
		presenter.Err(w, r, err, "server_error")
		return
	}
	if !result.Authenticated {
		presenter.Error(w, r, presenter.ErrorInvalidClient, http.StatusUnauthorized)
		return
	}

	presenter.JSON(w, r, result, http.StatusOK)
}
