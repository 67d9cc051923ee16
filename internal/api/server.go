package api

import (
	"net/http"

	"github.com/darmiel/clientauth/internal/api/middleware"
	"github.com/darmiel/clientauth/internal/audit"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/metrics"
	"github.com/darmiel/clientauth/internal/service"
)

type Server struct {
	registry    core.ClientRegistry
	auditor     core.Auditor
	metrics     *metrics.Recorder
	authService *service.AuthenticationService
}

func NewServer(
	registry core.ClientRegistry,
	validator service.Evaluator,
	auditor core.Auditor,
	recorder *metrics.Recorder,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	svc := service.NewAuthenticationService(registry, validator, auditor, recorder)

	return &Server{
		registry:    registry,
		auditor:     auditor,
		metrics:     recorder,
		authService: svc,
	}
}

func (s *Server) Routes(adminSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.Handle("GET "+MetricsRoute, s.metrics.Handler())

	// client authentication
	mux.HandleFunc("POST "+AuthenticateRoute, s.handleAuthenticate)

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListAttemptsRoute, s.handleAdminAttempts)
	adminMux.HandleFunc("GET "+ListClientsRoute, s.handleAdminClients)
	mux.Handle(AdminParent, middleware.AdminAuth(adminSigningKey)(adminMux))

	return middleware.CorrelationIDMiddleware(
		middleware.LoggingMiddleware(
			middleware.RecoverMiddleware(
				mux)))
}
