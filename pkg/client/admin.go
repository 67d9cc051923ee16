package client

import (
	"context"

	"github.com/darmiel/clientauth/internal/api"
	"github.com/darmiel/clientauth/internal/core"
)

type ListAttemptsOpts struct {
	Limit uint

	CorrelationID string
	ClientID      string
}

// ListAttempts retrieves the latest recorded authentication attempts from the server.
func (c *Client) ListAttempts(ctx context.Context, opts ListAttemptsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAttemptsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.ClientID != "" {
		ub = ub.addQueryParam("client_id", opts.ClientID)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

// ListClients retrieves the registered clients. Secret values are never returned.
func (c *Client) ListClients(ctx context.Context) ([]core.ClientInfo, string, error) {
	var resp []core.ClientInfo
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListClientsRoute).
		build(), &resp)
	return resp, correlation, err
}
