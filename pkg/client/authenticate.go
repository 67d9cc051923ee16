package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/darmiel/clientauth/internal/api"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/service"
)

// Authenticate presents a signed client assertion for clientID. A rejected
// assertion yields ErrInvalidClient. clientID may be empty, the server then
// reads it from the assertion's subject.
func (c *Client) Authenticate(
	ctx context.Context,
	clientID string,
	assertion string,
) (*service.AuthenticateResult, string, error) {
	form := url.Values{}
	if clientID != "" {
		form.Set("client_id", clientID)
	}
	form.Set("client_assertion_type", core.ClientAssertionTypeJWTBearer)
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url().
		setPath(api.AuthenticateRoute).
		build(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result service.AuthenticateResult
	correlation, err := c.do(req, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}
