package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/api"
	"github.com/darmiel/clientauth/internal/audit"
	"github.com/darmiel/clientauth/internal/metrics"
	"github.com/darmiel/clientauth/internal/registry"
	"github.com/darmiel/clientauth/internal/service"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clientauth server",
	Long: `Starts the HTTP server. Clients authenticate by posting the standard
client_assertion form fields to /connect/authenticate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log.Info().Str("type", cfg.Registry.Type).Msg("Initializing client registry...")
		reg, err := registry.Build(cfg)
		if err != nil {
			return fmt.Errorf("building client registry: %w", err)
		}

		log.Info().Msg("Initializing validator...")
		validator, err := service.BuildValidator(cmd.Context(), cfg, log.Logger)
		if err != nil {
			return err
		}
		log.Info().Str("audience", validator.Audience()).Msg("Accepting client assertions")

		auditor, err := audit.New(cfg.Audit)
		if err != nil {
			return fmt.Errorf("creating auditor: %w", err)
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close auditor")
			}
		}()

		if cfg.Admin.SigningKey == "" {
			log.Warn().Msg("No admin signing key configured, admin endpoints are disabled")
		}

		srv := api.NewServer(reg, validator, auditor, metrics.NewRecorder())
		server := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes([]byte(cfg.Admin.SigningKey)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("server crashed: %w", err)
		}
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	f.bindConfigFlag(serveCmd.Flags())
	_ = serveCmd.MarkFlagRequired("config")
}
