package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/migrate"
	"github.com/saiqldb/saiql/internal/saiql"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var catalogPath, from, to string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Build a schema migration plan between dialects",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			source := from
			if file.Dialect != "" && !cmd.Flags().Changed("from") {
				source = file.Dialect
			}

			plan, err := migrate.Build(cmd.Context(), source, to, file.Tables)
			if err != nil {
				opts.log.Error("migration plan failed", "code", saiql.CodeOf(err), "err", err)
				return err
			}
			for _, c := range plan.Lossy() {
				opts.log.Warn(c.Reason, "kind", "lossy-type", "column", c.Column)
			}
			opts.log.Debug("plan built", "id", plan.ID, "tables", len(plan.Tables))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", opts.cfg.CatalogPath, "schema catalog file")
	cmd.Flags().StringVar(&from, "from", opts.cfg.Source, "source dialect")
	cmd.Flags().StringVar(&to, "to", opts.cfg.Dialect, "target dialect")
	return cmd
}
