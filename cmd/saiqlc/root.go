package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/saiqldb/saiql/internal/config"
)

type rootOptions struct {
	cfg     *config.Config
	log     *slog.Logger
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.Load()}

	cmd := &cobra.Command{
		Use:           "saiqlc",
		Short:         "Compile SAIQL queries into dialect-specific SQL",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newCompileCmd(opts),
		newMapTypeCmd(opts),
		newMigrateCmd(opts),
		newRunCmd(opts),
	)
	return cmd
}
