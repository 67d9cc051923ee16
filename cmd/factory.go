package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/clientauth/internal/assertion"
	"github.com/darmiel/clientauth/internal/cliconfig"
	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/registry"
	"github.com/darmiel/clientauth/internal/service"
	"github.com/darmiel/clientauth/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the clientauth server to connect to.
	RemoteAddr string

	// ConfigPath is the server configuration used by local commands.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// ServerAddr returns the remote server address from the flag or config/env.
func (f *Factory) ServerAddr() string {
	if f.RemoteAddr != "" { // prio 1: command-line flag
		return f.RemoteAddr
	}
	return viper.GetString(AddrKey) // prio 2: config/env
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.ServerAddr()
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set CLIENTAUTH_ADDR)")
	}

	var token string
	cfg, err := cliconfig.Load()
	if err != nil {
		log.Warn().Err(err).Msg("could not load saved credentials")
	} else if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
		token = cred.Token
	} else if !errors.Is(err, cliconfig.ErrCredentialNotFound) {
		return nil, err
	}

	if envToken := viper.GetString(TokenKey); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return nil, fmt.Errorf("config file not specified (use --config)")
	}
	return config.Load(f.ConfigPath)
}

// GetLocalRegistry builds the client registry of the local configuration.
func (f *Factory) GetLocalRegistry() (core.ClientRegistry, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return registry.Build(cfg)
}

// GetLocalValidator builds the registry and validator of the local configuration.
func (f *Factory) GetLocalValidator(ctx context.Context) (core.ClientRegistry, *assertion.Validator, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	reg, err := registry.Build(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building client registry: %w", err)
	}
	validator, err := service.BuildValidator(ctx, cfg, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	return reg, validator, nil
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "f", "", "The clientauth server config file to use")
}
