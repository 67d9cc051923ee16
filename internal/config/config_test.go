package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/clientauth/internal/core"
)

const validConfig = `
authentication:
  audience: https://localhost:44391/connect/token
  clock_skew: 30s
jwks:
  timeout: 5s
clients:
  - client_id: api1jwtclient
    name: API1 JWT Client
    allowed_scopes: [api1.fullaccess]
    secrets:
      - type: X509CertificateBase64
        value: MIIDIDCCAgigAwIBAgIQ
        description: demo signing certificate
        expiration: 2030-01-01T00:00:00Z
  - client_id: disabled
    enabled: false
    secrets:
      - type: SharedSecret
        value: secret
audit:
  enabled: true
  type: memory
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://localhost:44391/connect/token", cfg.Authentication.Audience)
	assert.Equal(t, 30*time.Second, cfg.Authentication.ClockSkew)
	assert.Equal(t, 5*time.Second, cfg.JWKS.Timeout)
	assert.Equal(t, RegistryTypeStatic, cfg.Registry.Type)
	require.Len(t, cfg.Clients, 2)

	client := cfg.Clients[0]
	assert.True(t, client.IsEnabled())
	assert.False(t, cfg.Clients[1].IsEnabled())

	secrets := client.RegisteredSecrets()
	require.Len(t, secrets, 1)
	assert.Equal(t, "api1jwtclient", secrets[0].ClientID)
	assert.Equal(t, core.SecretTypeX509CertificateBase64, secrets[0].Type)
	require.NotNil(t, secrets[0].Expiration)
	assert.Equal(t, 2030, secrets[0].Expiration.Year())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "Missing Audience",
			input:   `clients: []`,
			wantErr: true,
		},
		{
			name: "Audience And Discovery",
			input: `authentication:
  audience: https://a/token
  discovery_url: https://a`,
			wantErr: true,
		},
		{
			name: "Relative Audience",
			input: `authentication:
  audience: /connect/token`,
			wantErr: true,
		},
		{
			name: "Discovery Only",
			input: `authentication:
  discovery_url: https://idp.example`,
		},
		{
			name: "Duplicate Clients",
			input: `authentication:
  audience: https://a/token
clients:
  - client_id: a
  - client_id: a`,
			wantErr: true,
		},
		{
			name: "Unknown Secret Type",
			input: `authentication:
  audience: https://a/token
clients:
  - client_id: a
    secrets:
      - type: X509Thumbprint
        value: ABC`,
			wantErr: true,
		},
		{
			name: "Unknown Registry",
			input: `authentication:
  audience: https://a/token
registry:
  type: ldap`,
			wantErr: true,
		},
		{
			name: "File Registry With Inline Clients",
			input: `authentication:
  audience: https://a/token
registry:
  type: file
  options:
    path: clients.yaml
clients:
  - client_id: a`,
			wantErr: true,
		},
		{
			name: "File Audit Without Path",
			input: `authentication:
  audience: https://a/token
audit:
  enabled: true
  type: file`,
			wantErr: true,
		},
		{
			name: "Short Admin Key",
			input: `authentication:
  audience: https://a/token
admin:
  signing_key: short`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Clients, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
