package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"
	MetricsRoute     = "/metrics"

	// AuthenticateRoute authenticates a client with the standard token endpoint credential fields.
	AuthenticateRoute = "/connect/authenticate"

	AdminParent       = "/v1/admin/"
	ListAttemptsRoute = AdminParent + "attempts"
	ListClientsRoute  = AdminParent + "clients"
)
