package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/codegen"
	"github.com/saiqldb/saiql/internal/compiler"
	"github.com/saiqldb/saiql/internal/saiql"
)

type compileFlags struct {
	catalogPath string
	dialect     string
	source      string
	surface     string
	overrides   []string
	budget      time.Duration
}

func (f *compileFlags) register(cmd *cobra.Command, opts *rootOptions) {
	cmd.Flags().StringVar(&f.catalogPath, "catalog", opts.cfg.CatalogPath, "schema catalog file")
	cmd.Flags().StringVar(&f.dialect, "dialect", opts.cfg.Dialect, "target SQL dialect")
	cmd.Flags().StringVar(&f.source, "source", opts.cfg.Source, "dialect the catalog types are declared in")
	cmd.Flags().StringVar(&f.surface, "surface", "symbolic", "query surface: symbolic or sql")
	cmd.Flags().StringArrayVar(&f.overrides, "override", nil, "force an unsupported construct, e.g. join:right")
	cmd.Flags().DurationVar(&f.budget, "optimize-budget", 0, "optimizer time budget, 0 for unlimited")
}

func (f *compileFlags) surfaceKind() (saiql.Surface, error) {
	switch f.surface {
	case "symbolic":
		return saiql.Symbolic, nil
	case "sql":
		return saiql.SQLSubset, nil
	}
	return 0, fmt.Errorf("unknown surface %q, want symbolic or sql", f.surface)
}

func (f *compileFlags) compile(cmd *cobra.Command, query string) (*compiler.CompiledQuery, error) {
	surface, err := f.surfaceKind()
	if err != nil {
		return nil, err
	}
	file, err := catalog.LoadFile(f.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	source := f.source
	if file.Dialect != "" && !cmd.Flags().Changed("source") {
		source = file.Dialect
	}

	overrides := make(map[codegen.Feature]bool, len(f.overrides))
	for _, o := range f.overrides {
		overrides[codegen.Feature(o)] = true
	}

	return compiler.Compile(cmd.Context(), compiler.Input{
		Query:   query,
		Surface: surface,
		Dialect: f.dialect,
		Source:  source,
		Schema:  file.Memory(),
		Stats:   file.Stats(),
		Options: compiler.Options{
			Overrides:      overrides,
			OptimizeBudget: f.budget,
		},
	})
}

func newCompileCmd(opts *rootOptions) *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "compile QUERY",
		Short: "Compile a query and print the generated SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.compile(cmd, args[0])
			if err != nil {
				opts.log.Error("compile failed", "code", saiql.CodeOf(err), "err", err)
				return err
			}
			for _, w := range out.Warnings {
				opts.log.Warn(w.Detail, "kind", w.Kind)
			}
			opts.log.Debug("plan",
				"id", out.ID,
				"join_order", out.Explain.JoinOrder,
				"output", out.Output.String())

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	flags.register(cmd, opts)
	return cmd
}
