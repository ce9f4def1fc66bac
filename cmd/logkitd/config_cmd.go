package main

import (
	"fmt"

	"github.com/fyrsmithlabs/logkit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying defaults, the config file and
LOGKIT_* environment variables. Secrets are printed as [REDACTED].`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFile(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
