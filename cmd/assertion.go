package cmd

import (
	"github.com/spf13/cobra"
)

var assertionCmd = &cobra.Command{
	Use:   "assertion",
	Short: "Create and check client assertions",
}

func init() {
	rootCmd.AddCommand(assertionCmd)
}
