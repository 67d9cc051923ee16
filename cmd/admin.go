package cmd

import (
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin sessions for the admin endpoints",
}

func init() {
	rootCmd.AddCommand(adminCmd)
}
