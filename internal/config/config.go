package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/darmiel/clientauth/internal/core"
)

const (
	RegistryTypeStatic = "static"
	RegistryTypeFile   = "file"

	AuditTypeMemory = "memory"
	AuditTypeFile   = "file"

	// MinAdminKeyLength is the minimum length of the admin HMAC signing key.
	MinAdminKeyLength = 32
)

type Config struct {
	Authentication AuthenticationConfig `yaml:"authentication"`
	JWKS           JWKSConfig           `yaml:"jwks"`
	Registry       RegistryConfig       `yaml:"registry"`
	Clients        []ClientConfig       `yaml:"clients"`
	Audit          AuditConfig          `yaml:"audit"`
	Admin          AdminConfig          `yaml:"admin"`
}

// AuthenticationConfig configures the client assertion validator.
type AuthenticationConfig struct {
	// Audience is the identity of this server's token endpoint,
	// assertions must name it in their 'aud' claim.
	Audience string `yaml:"audience"`

	// DiscoveryURL is an OpenID issuer URL. If set instead of Audience,
	// the audience is the token_endpoint from the discovery document.
	DiscoveryURL string `yaml:"discovery_url"`

	// ClockSkew tolerated when checking 'exp' and 'nbf'. Defaults to 0.
	ClockSkew time.Duration `yaml:"clock_skew"`
}

// JWKSConfig configures fetching of remote key sets (JWKSReference secrets).
type JWKSConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxBytes          int64         `yaml:"max_bytes"`
	AllowInsecureHTTP bool          `yaml:"allow_insecure_http"`
}

// RegistryConfig selects where clients are loaded from.
type RegistryConfig struct {
	// Type is "static" (the clients list of this file, default) or "file".
	Type string `yaml:"type"`

	// Options are type specific, e.g. `path` for the file registry.
	Options map[string]any `yaml:"options"`
}

// ClientConfig is a registered client.
type ClientConfig struct {
	ClientID      string         `yaml:"client_id"`
	Name          string         `yaml:"name"`
	Enabled       *bool          `yaml:"enabled"`
	AllowedScopes []string       `yaml:"allowed_scopes"`
	Secrets       []SecretConfig `yaml:"secrets"`
}

// SecretConfig is a secret registered for a client.
type SecretConfig struct {
	Type        core.SecretType `yaml:"type"`
	Value       string          `yaml:"value"`
	Description string          `yaml:"description"`
	Expiration  *time.Time      `yaml:"expiration"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// AdminConfig configures access to the admin endpoints.
type AdminConfig struct {
	// SigningKey is the HMAC key admin session tokens are signed with.
	// Admin endpoints are disabled if empty.
	SigningKey string `yaml:"signing_key"`
}

// IsEnabled returns whether the client is enabled, clients are enabled by default.
func (c ClientConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RegisteredSecrets converts the configured secrets of the client.
func (c ClientConfig) RegisteredSecrets() []core.RegisteredSecret {
	secrets := make([]core.RegisteredSecret, 0, len(c.Secrets))
	for _, s := range c.Secrets {
		secrets = append(secrets, core.RegisteredSecret{
			ClientID:    c.ClientID,
			Type:        s.Type,
			Value:       s.Value,
			Description: s.Description,
			Expiration:  s.Expiration,
		})
	}
	return secrets
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses and validates configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Authentication.Validate(); err != nil {
		return fmt.Errorf("validating authentication: %w", err)
	}

	if c.Registry.Type == "" {
		c.Registry.Type = RegistryTypeStatic
	}
	switch c.Registry.Type {
	case RegistryTypeStatic:
		if err := ValidateClients(c.Clients); err != nil {
			return fmt.Errorf("validating clients: %w", err)
		}
	case RegistryTypeFile:
		if len(c.Clients) > 0 {
			return fmt.Errorf("registry type '%s' does not allow inline clients", c.Registry.Type)
		}
	default:
		return fmt.Errorf("unknown registry type '%s'", c.Registry.Type)
	}

	if c.JWKS.Timeout < 0 {
		return fmt.Errorf("jwks timeout must not be negative")
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case AuditTypeMemory:
		case AuditTypeFile:
			if c.Audit.Path == "" {
				return fmt.Errorf("audit type 'file' requires a path")
			}
		default:
			return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
		}
	}

	if c.Admin.SigningKey != "" && len(c.Admin.SigningKey) < MinAdminKeyLength {
		return fmt.Errorf("admin signing key must be at least %d characters", MinAdminKeyLength)
	}
	return nil
}

func (a *AuthenticationConfig) Validate() error {
	switch {
	case a.Audience != "" && a.DiscoveryURL != "":
		return fmt.Errorf("set either 'audience' or 'discovery_url', not both")
	case a.Audience != "":
		if err := validateAbsoluteURL(a.Audience); err != nil {
			return fmt.Errorf("audience: %w", err)
		}
	case a.DiscoveryURL != "":
		if err := validateAbsoluteURL(a.DiscoveryURL); err != nil {
			return fmt.Errorf("discovery_url: %w", err)
		}
	default:
		return fmt.Errorf("'audience' or 'discovery_url' is required")
	}
	if a.ClockSkew < 0 {
		return fmt.Errorf("clock_skew must not be negative")
	}
	return nil
}

// ValidateClients checks client ids are present and unique and every secret is usable.
func ValidateClients(clients []ClientConfig) error {
	seen := make(map[string]struct{}, len(clients))
	for idx, client := range clients {
		if client.ClientID == "" {
			return fmt.Errorf("client at index %d has empty client_id", idx)
		}
		if _, ok := seen[client.ClientID]; ok {
			return fmt.Errorf("duplicate client_id '%s'", client.ClientID)
		}
		seen[client.ClientID] = struct{}{}

		for sIdx, secret := range client.Secrets {
			if !secret.Type.IsKnown() {
				return fmt.Errorf("client '%s': secret at index %d has unknown type '%s'",
					client.ClientID, sIdx, secret.Type)
			}
			if secret.Value == "" {
				return fmt.Errorf("client '%s': secret at index %d has empty value", client.ClientID, sIdx)
			}
		}
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("'%s' must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("'%s' has no host", raw)
	}
	return nil
}
