package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/security/secrets"
)

var configShowFlags struct {
	format string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and exit",
	Long: `Load the configuration file (if any), .env and environment overrides,
then validate the result. Exits non-zero with every problem found.

Examples:
  relay config validate --config /etc/relay/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(configShowFlags.format)
		if err != nil {
			return err
		}
		if format == cli.FormatText {
			format = cli.FormatYAML
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cfg.Redacted())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)

	configShowCmd.Flags().StringVarP(&configShowFlags.format, "format", "f", "yaml", "output format: yaml, json")
}

// loadConfig loads the configuration named by --config, resolves secret
// references and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(err)
	}

	mgr, err := secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return nil, &cli.ConfigError{Field: "secrets.dir", Message: err.Error(), Err: err}
	}
	if err := mgr.ResolveConfig(context.Background(), cfg); err != nil {
		return nil, &cli.ConfigError{Field: "secrets", Message: err.Error(), Err: err}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, cli.WrapConfigError(err)
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
