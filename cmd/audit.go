package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded authentication attempts",
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
