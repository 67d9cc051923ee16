package core

import "context"

// ClientRegistry resolves the registered trust anchors of a client.
// Implementations: static config registry, YAML file registry.
type ClientRegistry interface {
	// FindSecrets returns the secrets registered for clientID.
	// Unknown or disabled clients yield an empty slice and a nil error;
	// an error is only returned when the underlying store fails.
	FindSecrets(ctx context.Context, clientID string) ([]RegisteredSecret, error)
}

// ClientLister is implemented by registries that can enumerate their clients.
type ClientLister interface {
	ListClients(ctx context.Context) ([]ClientInfo, error)
}

// ClientInfo is a listing view of a registered client. It never contains secret values.
type ClientInfo struct {
	ClientID      string             `json:"client_id"`
	Name          string             `json:"name,omitempty"`
	Enabled       bool               `json:"enabled"`
	AllowedScopes []string           `json:"allowed_scopes,omitempty"`
	Secrets       []RegisteredSecret `json:"secrets"`
}

// KeySetResolver resolves a reference-typed secret (e.g. a JWKS URL) into verification keys.
type KeySetResolver interface {
	Resolve(ctx context.Context, reference string) ([]VerificationKey, error)
}

// KeyMaterializer turns registered secrets into verification keys.
type KeyMaterializer interface {
	MaterializeAll(ctx context.Context, secrets []RegisteredSecret) ([]VerificationKey, error)
}
