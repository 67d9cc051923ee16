package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/api/middleware"
	"github.com/darmiel/clientauth/internal/cliconfig"
)

var (
	loginSubject string
	loginTTL     time.Duration
	loginPrint   bool
)

var adminLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Create an admin session token from the server's signing key",
	Long: `Signs an admin session token with admin.signing_key of the server
configuration. The token is saved for the --server address, so later admin
commands (audit log, clients list) are authenticated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Admin.SigningKey == "" {
			return fmt.Errorf("config has no admin signing key, admin endpoints are disabled")
		}

		token, err := middleware.MintAdminToken([]byte(cfg.Admin.SigningKey), loginSubject, loginTTL)
		if err != nil {
			return err
		}
		if loginPrint {
			_, _ = fmt.Fprintln(os.Stdout, token)
			return nil
		}

		server := f.ServerAddr()
		if server == "" {
			return fmt.Errorf("server address not configured (use --server or set CLIENTAUTH_ADDR)")
		}
		store, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading saved credentials: %w", err)
		}
		if err := store.SetCredential(server, token); err != nil {
			return err
		}
		if err := cliconfig.Save(store); err != nil {
			return logError(err, "", "could not save credentials")
		}

		log.Info().Msgf("%s Logged in to %s (valid for %s)", greenCheck, bold(server), loginTTL)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminLoginCmd)

	f.bindConfigFlag(adminLoginCmd.Flags())
	adminLoginCmd.Flags().StringVar(&loginSubject, "subject", "cli", "Subject of the session token")
	adminLoginCmd.Flags().DurationVar(&loginTTL, "ttl", 8*time.Hour, "Lifetime of the session token")
	adminLoginCmd.Flags().BoolVar(&loginPrint, "print", false, "Print the token instead of saving it")
	_ = adminLoginCmd.MarkFlagRequired("config")
}
