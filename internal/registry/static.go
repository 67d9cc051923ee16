package registry

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
)

var (
	_ core.ClientRegistry = (*Static)(nil)
	_ core.ClientLister   = (*Static)(nil)
)

// Static is an immutable in-memory client registry.
type Static struct {
	clients map[string]config.ClientConfig
}

// NewStatic builds a registry from the given clients. Clients are validated first.
func NewStatic(clients []config.ClientConfig) (*Static, error) {
	if err := config.ValidateClients(clients); err != nil {
		return nil, fmt.Errorf("building static registry: %w", err)
	}
	m := make(map[string]config.ClientConfig, len(clients))
	for _, c := range clients {
		m[c.ClientID] = c
	}
	return &Static{clients: m}, nil
}

// FindSecrets returns a copy of the secrets of an enabled client.
func (s *Static) FindSecrets(_ context.Context, clientID string) ([]core.RegisteredSecret, error) {
	client, ok := s.clients[clientID]
	if !ok || !client.IsEnabled() {
		return nil, nil
	}
	return client.RegisteredSecrets(), nil
}

// ListClients returns all clients sorted by id. Secret values are never part of the listing.
func (s *Static) ListClients(_ context.Context) ([]core.ClientInfo, error) {
	result := make([]core.ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		result = append(result, core.ClientInfo{
			ClientID:      c.ClientID,
			Name:          c.Name,
			Enabled:       c.IsEnabled(),
			AllowedScopes: slices.Clone(c.AllowedScopes),
			Secrets:       c.RegisteredSecrets(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClientID < result[j].ClientID
	})
	return result, nil
}
