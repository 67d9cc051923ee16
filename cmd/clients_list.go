package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/core"
)

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clients and the types of their secrets",
	Long: `Lists the clients of the local configuration (--config) or of a remote
server (--server). Secret values are never shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			clients []core.ClientInfo
			err     error
		)
		if f.ConfigPath != "" {
			clients, err = listClientsLocally(cmd)
		} else {
			clients, err = listClientsRemote(cmd)
		}
		if err != nil {
			return err
		}
		printClients(clients)
		return nil
	},
}

func init() {
	clientsCmd.AddCommand(clientsListCmd)

	f.bindConfigFlag(clientsListCmd.Flags())
}

func listClientsLocally(cmd *cobra.Command) ([]core.ClientInfo, error) {
	reg, err := f.GetLocalRegistry()
	if err != nil {
		return nil, err
	}
	lister, ok := reg.(core.ClientLister)
	if !ok {
		return nil, fmt.Errorf("registry cannot list its clients")
	}
	return lister.ListClients(cmd.Context())
}

func listClientsRemote(cmd *cobra.Command) ([]core.ClientInfo, error) {
	cli, err := f.GetClient()
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Fetching clients...")
	clients, correlation, err := cli.ListClients(cmd.Context())
	if err != nil {
		return nil, logError(err, correlation, "failed to list clients")
	}
	return clients, nil
}

func printClients(clients []core.ClientInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Client ID", "Name", "Enabled", "Scopes", "Secrets"})

	for _, c := range clients {
		enabled := color.GreenString("YES")
		if !c.Enabled {
			enabled = color.RedString("NO")
		}
		secretTypes := make([]string, 0, len(c.Secrets))
		for _, s := range c.Secrets {
			desc := string(s.Type)
			if s.Expiration != nil {
				desc += fmt.Sprint(faint(" (expires " + s.Expiration.Format("2006-01-02") + ")"))
			}
			secretTypes = append(secretTypes, desc)
		}
		t.AppendRow(table.Row{
			bold(c.ClientID),
			c.Name,
			enabled,
			strings.Join(c.AllowedScopes, ", "),
			strings.Join(secretTypes, "\n"),
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
