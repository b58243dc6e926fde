package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
	"nextgate-hq/relay/pkg/kvstore"
	"nextgate-hq/relay/pkg/session"
)

const sessionsTimeout = 30 * time.Second

var sessionsFlags struct {
	format string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect sessions stored in Redis",
}

var sessionsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(cmd, func(ctx context.Context, store *session.Store) (any, error) {
			n, err := store.Length(ctx)
			if err != nil {
				return nil, err
			}
			return cli.Fields{{Key: "sessions", Value: n}}, nil
		})
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the ids of stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(cmd, func(ctx context.Context, store *session.Store) (any, error) {
			return store.IDs(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsCountCmd, sessionsListCmd)

	sessionsCmd.PersistentFlags().StringVarP(&sessionsFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

func withSessionStore(cmd *cobra.Command, fn func(context.Context, *session.Store) (any, error)) error {
	format, err := cli.ParseFormat(sessionsFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kv, err := kvstore.Connect(cfg.Redis)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer kv.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), sessionsTimeout)
	defer cancel()

	result, err := fn(ctx, session.NewStore(kv, cfg.Session))
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)
}
