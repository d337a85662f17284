// Package migrate builds schema migration plans between dialects. A
// plan maps every column of every table through the canonical type
// model; it never emits SQL.
package migrate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/typemap"
)

// ColumnMapping is one column's translation.
type ColumnMapping struct {
	Column     string
	SourceType string
	TargetType string
	Lossy      bool
	Reason     string // set when Lossy
}

// TableMapping is one table's translation, columns in catalog order.
type TableMapping struct {
	Table   string
	Columns []ColumnMapping
}

// Plan is a complete migration plan. Lossy mappings survive in the
// plan with their reasons; a type the target cannot represent fails
// the whole plan instead.
type Plan struct {
	ID     uuid.UUID
	Source string
	Target string
	Tables []TableMapping
}

// Lossy lists every mapping in the plan that loses information.
func (p *Plan) Lossy() []ColumnMapping {
	var out []ColumnMapping
	for _, t := range p.Tables {
		for _, c := range t.Columns {
			if c.Lossy {
				out = append(out, c)
			}
		}
	}
	return out
}

// Build maps every table concurrently, one goroutine per table. The
// first unmappable column cancels the rest and fails the plan.
func Build(ctx context.Context, source, target string, tables []catalog.Table) (*Plan, error) {
	plan := &Plan{
		ID:     uuid.New(),
		Source: typemap.Normalize(source),
		Target: typemap.Normalize(target),
		Tables: make([]TableMapping, len(tables)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mapped, err := mapTable(source, target, table)
			if err != nil {
				return err
			}
			plan.Tables[i] = mapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plan, nil
}

func mapTable(source, target string, table catalog.Table) (TableMapping, error) {
	out := TableMapping{Table: table.Name, Columns: make([]ColumnMapping, 0, len(table.Columns))}
	for _, col := range table.Columns {
		m, err := typemap.MapType(source, col.Type, target)
		if err != nil {
			return TableMapping{}, fmt.Errorf("table %s, column %s: %w", table.Name, col.Name, err)
		}
		out.Columns = append(out.Columns, ColumnMapping{
			Column:     col.Name,
			SourceType: col.Type,
			TargetType: m.TargetType,
			Lossy:      m.Lossy,
			Reason:     m.Reason,
		})
	}
	return out, nil
}
