package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/clientauth/internal/api/presenter"
	"github.com/darmiel/clientauth/internal/core"
)

const (
	defaultAttemptsLimit = 50
	maxAttemptsLimit     = 1000
)

// handleAdminAttempts processes requests to retrieve recorded authentication attempts.
func (s *Server) handleAdminAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		presenter.Error(w, r, "configured auditor cannot be queried", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterClientID := q.Get("client_id")

	limit := defaultAttemptsLimit
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 || v > maxAttemptsLimit {
			logger.Warn().Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterClientID != "" {
		logger.Debug().Msg("applying audit log filters")
		entries, err = reader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterClientID != "" && entry.ClientID != filterClientID {
				return false
			}
			return true
		}, limit)
	} else {
		logger.Debug().Msg("retrieving recent audit log entries")
		entries, err = reader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}

// handleAdminClients lists the registered clients without their secret values.
func (s *Server) handleAdminClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	lister, ok := s.registry.(core.ClientLister)
	if !ok {
		presenter.Error(w, r, "configured registry cannot list clients", http.StatusNotImplemented)
		return
	}

	clients, err := lister.ListClients(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list clients")
		presenter.Error(w, r, "failed to list clients", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, clients, http.StatusOK)
}
