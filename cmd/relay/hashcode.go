package main

import (
	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
	"nextgate-hq/relay/pkg/security/auth"
)

var hashCodeFlags struct {
	format string
}

var hashCodeCmd = &cobra.Command{
	Use:   "hash-code CODE...",
	Short: "Print the allow-list digest of access codes",
	Long: `Print the digest stored in access.code_hashes (or the CODE environment
variable) for each access code given, one per line.

Examples:
  relay hash-code my-secret-code
  relay hash-code alpha beta --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(hashCodeFlags.format)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), hashCodes(args))
	},
}

func init() {
	rootCmd.AddCommand(hashCodeCmd)
	hashCodeCmd.Flags().StringVarP(&hashCodeFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

func hashCodes(codes []string) []string {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, auth.HashCode(code))
	}
	return hashes
}
