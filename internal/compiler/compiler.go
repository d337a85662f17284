// Package compiler ties the pipeline together: parse, validate,
// optimize, and render one query for one target dialect. Every
// collaborator arrives through the Input; the package holds no global
// state, so two compilations of the same input produce the same plan.
package compiler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saiqldb/saiql/internal/analyze"
	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/codegen"
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/optimizer"
	"github.com/saiqldb/saiql/internal/saiql"
)

// Options tune one compilation.
type Options struct {
	// Overrides force generation of constructs the target dialect
	// flags as unsupported. Each forced construct surfaces as a
	// warning on the result.
	Overrides map[codegen.Feature]bool

	// OptimizeBudget caps the optimizer's wall time. Zero means no
	// cap. An exhausted budget is not an error; the plan built so far
	// is used and a warning is attached.
	OptimizeBudget time.Duration

	// Firewall inspects the raw query text before validation. Nil
	// means allow everything.
	Firewall analyze.Inspector
}

// Input is everything a compilation needs.
type Input struct {
	Query   string
	Surface saiql.Surface
	Dialect string // target dialect for the generated SQL
	Source  string // dialect the catalog column types are declared in
	Schema  catalog.View
	Stats   optimizer.MetadataView
	Options Options
}

// Warning is a non-fatal diagnostic from any stage.
type Warning struct {
	Kind   string
	Detail string
}

// AccessPlan records the chosen access path for one scanned table.
type AccessPlan struct {
	Table string
	Path  string
}

// Explain summarizes the physical plan behind the generated SQL.
type Explain struct {
	JoinOrder []string
	Access    []AccessPlan
}

// CompiledQuery is the result of a successful compilation.
type CompiledQuery struct {
	ID       uuid.UUID
	Dialect  string
	SQL      string
	Params   []any
	Output   saiql.SinkFormat
	Warnings []Warning
	Explain  Explain
}

// Compile runs the full pipeline. The context bounds the whole call;
// Options.OptimizeBudget additionally bounds the optimizer alone.
func Compile(ctx context.Context, in Input) (*CompiledQuery, error) {
	if in.Schema == nil {
		return nil, saiql.Errorf(saiql.CodeSemantic, "compile: no schema catalog supplied")
	}
	if in.Stats == nil {
		return nil, saiql.Errorf(saiql.CodeSemantic, "compile: no table statistics supplied")
	}
	dialect, ok := codegen.Lookup(in.Dialect)
	if !ok {
		return nil, saiql.Errorf(saiql.CodeUnsupported, "unknown target dialect %q", in.Dialect)
	}
	firewall := in.Options.Firewall
	if firewall == nil {
		firewall = analyze.AllowAll{}
	}

	q, err := saiql.ParseQuery(in.Query, in.Surface)
	if err != nil {
		return nil, err
	}

	builder := &analyze.Builder{
		Catalog:       in.Schema,
		Firewall:      firewall,
		SourceDialect: in.Source,
	}
	root, err := builder.Build(in.Query, q)
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	if _, isRead := root.(*ir.Sink); isRead {
		optCtx := ctx
		if in.Options.OptimizeBudget > 0 {
			var cancel context.CancelFunc
			optCtx, cancel = context.WithTimeout(ctx, in.Options.OptimizeBudget)
			defer cancel()
		}
		opt := &optimizer.Optimizer{Meta: in.Stats}
		var optWarnings []optimizer.Warning
		root, optWarnings = opt.Optimize(optCtx, root)
		for _, w := range optWarnings {
			warnings = append(warnings, Warning{Kind: w.Kind, Detail: w.Detail})
		}
	}

	gen := &codegen.Generator{
		Dialect:       dialect,
		SourceDialect: in.Source,
		Catalog:       in.Schema,
		Overrides:     in.Options.Overrides,
	}
	rendered, err := gen.Generate(root)
	if err != nil {
		return nil, err
	}
	for _, w := range rendered.Warnings {
		warnings = append(warnings, Warning{Kind: w.Kind, Detail: w.Detail})
	}

	out := &CompiledQuery{
		ID:       uuid.New(),
		Dialect:  dialect.Name,
		SQL:      rendered.SQL,
		Params:   rendered.Params,
		Output:   outputOf(q),
		Warnings: warnings,
		Explain:  explain(root),
	}
	return out, nil
}

func outputOf(q saiql.Query) saiql.SinkFormat {
	if sel, ok := q.(*saiql.SelectQuery); ok {
		return sel.Sink
	}
	return saiql.SinkRows
}

func explain(root ir.Node) Explain {
	ex := Explain{JoinOrder: ir.Tables(root)}
	for _, s := range ir.Scans(root) {
		ex.Access = append(ex.Access, AccessPlan{Table: s.Table, Path: s.Access.String()})
	}
	return ex
}
