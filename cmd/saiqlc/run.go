package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/saiqldb/saiql/internal/runner"
	"github.com/saiqldb/saiql/internal/saiql"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags compileFlags
	var dsn string

	cmd := &cobra.Command{
		Use:   "run QUERY",
		Short: "Compile a query and execute it against a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("no database: set --dsn or DATABASE_URL")
			}
			out, err := flags.compile(cmd, args[0])
			if err != nil {
				opts.log.Error("compile failed", "code", saiql.CodeOf(err), "err", err)
				return err
			}
			for _, w := range out.Warnings {
				opts.log.Warn(w.Detail, "kind", w.Kind)
			}
			opts.log.Debug("executing", "id", out.ID, "dialect", out.Dialect, "sql", out.SQL)

			r, err := runner.Open(out.Dialect, dsn)
			if err != nil {
				return err
			}
			defer r.Close()
			return r.Run(cmd.Context(), out, os.Stdout)
		},
	}

	flags.register(cmd, opts)
	cmd.Flags().StringVar(&dsn, "dsn", opts.cfg.DatabaseURL, "database connection string")
	return cmd
}
