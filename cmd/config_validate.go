package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/clientauth/internal/registry"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses and validates the server configuration and builds the client
registry it selects. Keys are not materialized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msgf("%s Configuration is invalid.", redCross)
			return BeQuietError{}
		}
		if _, err := registry.Build(cfg); err != nil {
			log.Error().Err(err).Msgf("%s Client registry is invalid.", redCross)
			return BeQuietError{}
		}
		log.Info().Msgf("%s Configuration is valid.", greenCheck)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	f.bindConfigFlag(configValidateCmd.Flags())
	_ = configValidateCmd.MarkFlagRequired("config")
}
