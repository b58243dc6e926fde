package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

var versionFlags struct {
	format string
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(versionFlags.format)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), versionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVarP(&versionFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

func versionInfo() cli.Fields {
	return cli.Fields{
		{Key: "Version", Value: Version},
		{Key: "Git Commit", Value: GitCommit},
		{Key: "Build Date", Value: BuildDate},
		{Key: "Go Version", Value: runtime.Version()},
		{Key: "OS/Arch", Value: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
	}
}
