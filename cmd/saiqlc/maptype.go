package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/saiqldb/saiql/internal/saiql"
	"github.com/saiqldb/saiql/internal/typemap"
)

func newMapTypeCmd(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "maptype TYPE",
		Short: "Map a column type from one dialect to another",
		Long: `Map a column type signature through the canonical type system,
e.g. "saiqlc maptype --from oracle --to postgres 'NUMBER(10,2)'".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := typemap.MapType(from, args[0], to)
			if err != nil {
				opts.log.Error("type mapping failed", "code", saiql.CodeOf(err), "err", err)
				return err
			}
			if m.Lossy {
				opts.log.Warn(m.Reason, "kind", "lossy-type")
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}

	cmd.Flags().StringVar(&from, "from", opts.cfg.Source, "source dialect")
	cmd.Flags().StringVar(&to, "to", opts.cfg.Dialect, "target dialect")
	return cmd
}
