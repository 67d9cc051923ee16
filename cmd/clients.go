package cmd

import (
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Inspect registered clients",
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}
