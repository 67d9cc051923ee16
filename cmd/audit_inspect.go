package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/pkg/client"
)

var auditInspectCmd = &cobra.Command{
	Use:     "inspect CORRELATION-ID",
	Short:   "Show full details of a specific authentication attempt",
	Example: `  clientauth audit inspect d0bqk3h2qkpc73f0b2g0`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correlationID := args[0]
		if correlationID == "" {
			return fmt.Errorf("correlation ID cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving entry with correlation ID '%s'...", correlationID)
		attempts, correlation, err := cli.ListAttempts(cmd.Context(), client.ListAttemptsOpts{
			Limit:         1,
			CorrelationID: correlationID,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log entry")
		}
		if len(attempts) == 0 {
			log.Warn().Str("correlation_id", correlationID).Msg("no audit log entries found")
			return nil
		}

		entry := attempts[0]

		printKV := func(key string, val any) {
			if s, ok := val.(string); ok && s == "" {
				val = faint("(none)")
			}
			fmt.Printf("  %-26s %v\n", faint(key)+":", val)
		}

		status := color.GreenString("authenticated")
		if !entry.Authenticated {
			status = color.RedString("rejected")
		}

		fmt.Println(bold("\n── Authentication Attempt ──"))
		printKV("Correlation ID", correlationID)
		printKV("Time", entry.Time.Local().Format(time.RFC1123))
		printKV("Action", entry.Action)
		printKV("Decision", status)

		fmt.Println(bold("\n── Client ──"))
		printKV("Client ID", entry.ClientID)
		printKV("Credential Type", entry.CredentialType)
		printKV("Assertion Fingerprint", entry.AssertionFingerprint)
		printKV("Key ID", entry.KeyID)

		fmt.Println(bold("\n── Result ──"))
		printKV("Reason", reasonString(entry.Reason))
		printKV("Error", entry.Error)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditInspectCmd)
}
