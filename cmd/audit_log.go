package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/pkg/client"
)

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display recorded authentication attempts",
	Example: `  clientauth audit log --server https://auth.example -n 50
  clientauth audit log --client api1jwtclient`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetUint("limit")
		if err != nil {
			return err
		}
		clientID, _ := cmd.Flags().GetString("client")

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit log...")
		attempts, correlation, err := cli.ListAttempts(cmd.Context(), client.ListAttemptsOpts{
			Limit:    limit,
			ClientID: clientID,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log")
		}

		log.Info().Msgf("Retrieved %d audit entries", len(attempts))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Correlation", "Client", "Type", "Authenticated", "Reason",
		})

		for _, e := range attempts {
			status := color.GreenString("YES")
			if !e.Authenticated {
				status = color.RedString("NO")
			}

			t.AppendRow(table.Row{
				e.Time.Local().Format(time.RFC3339),
				e.ID,
				truncate(e.ClientID, 35),
				e.CredentialType,
				status,
				reasonString(e.Reason),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintP("limit", "n", 25, "Number of audit entries to retrieve")
	auditLogCmd.Flags().StringP("client", "c", "", "Only show attempts of this client id")
}
