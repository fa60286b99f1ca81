package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/internal/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration with secrets masked. With --init,
write the current defaults to the config file first.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write defaults to the config file")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if configInit {
		loader := config.NewLoader(cfgFile)
		if err := loader.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
	return nil
}
