// Package codegen renders an optimized operator tree into one
// parameterized SQL statement for a target dialect. Every literal
// value travels as a bound parameter; user-controlled text is never
// interpolated into the SQL string.
package codegen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/saiql"
	"github.com/saiqldb/saiql/internal/typemap"
)

// Warning is a non-fatal diagnostic attached to the generated
// statement.
type Warning struct {
	Kind   string
	Detail string
}

const (
	WarnLossy    = "lossy-type"
	WarnOverride = "override"
)

// Generator renders IR for one target dialect. All fields except
// Overrides are required. SourceDialect names the dialect the catalog
// column types are declared in.
type Generator struct {
	Dialect       *Dialect
	SourceDialect string
	Catalog       catalog.View
	Overrides     map[Feature]bool
}

// Result is the rendered statement.
type Result struct {
	SQL      string
	Params   []any
	Warnings []Warning
}

// Generate renders the tree. A construct the dialect cannot express
// aborts with an unsupported diagnostic unless its override token was
// supplied, in which case the override is recorded as a warning.
func (g *Generator) Generate(root ir.Node) (*Result, error) {
	switch v := root.(type) {
	case *ir.Sink:
		return g.genSelect(v.Child)
	case *ir.Insert:
		return g.genInsert(v)
	case *ir.Update:
		return g.genUpdate(v)
	case *ir.Delete:
		return g.genDelete(v)
	default:
		return g.genSelect(root)
	}
}

// --- SELECT ---

type joinPart struct {
	sql  string
	args []any
}

type selectParts struct {
	columns  []string
	distinct bool
	from     string
	joins    []joinPart
	where    []sq.Sqlizer
	groupBy  []string
	orderBy  []string
	limit    *int64
	warnings []Warning
}

func (g *Generator) genSelect(root ir.Node) (*Result, error) {
	var parts selectParts
	if err := g.walkSelect(root, &parts); err != nil {
		return nil, err
	}
	if len(parts.columns) == 0 {
		return nil, saiql.Errorf(saiql.CodeSemantic, "query produces no columns")
	}

	b := sq.Select(parts.columns...).From(parts.from)
	if parts.distinct {
		b = b.Distinct()
	}
	if parts.limit != nil && g.Dialect.UseTop {
		b = b.Options(fmt.Sprintf("TOP %d", *parts.limit))
	}
	for _, j := range parts.joins {
		b = b.JoinClause(j.sql, j.args...)
	}
	for _, w := range parts.where {
		b = b.Where(w)
	}
	if len(parts.groupBy) > 0 {
		b = b.GroupBy(parts.groupBy...)
	}
	if len(parts.orderBy) > 0 {
		b = b.OrderBy(parts.orderBy...)
	}
	if parts.limit != nil && !g.Dialect.UseTop {
		b = b.Limit(uint64(*parts.limit))
	}

	sql, args, err := b.PlaceholderFormat(g.Dialect.Placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("render select: %w", err)
	}
	return &Result{SQL: sql, Params: args, Warnings: parts.warnings}, nil
}

func (g *Generator) walkSelect(n ir.Node, parts *selectParts) error {
	switch v := n.(type) {
	case *ir.Limit:
		n := v.N
		parts.limit = &n
		return g.walkSelect(v.Child, parts)

	case *ir.Sort:
		if v.Random {
			parts.orderBy = append(parts.orderBy, g.Dialect.RandomFn)
		}
		for _, item := range v.Items {
			expr := g.Dialect.QuoteColumn(item.Col.Table, item.Col.Name)
			if item.Desc {
				expr += " DESC"
			}
			parts.orderBy = append(parts.orderBy, expr)
		}
		return g.walkSelect(v.Child, parts)

	case *ir.Project:
		parts.distinct = v.Distinct
		for _, col := range v.Columns {
			parts.columns = append(parts.columns, g.Dialect.QuoteColumn(col.Table, col.Name))
			if err := g.checkColumnType(col, parts); err != nil {
				return err
			}
		}
		return g.walkSelect(v.Child, parts)

	case *ir.Aggregate:
		for _, col := range v.GroupBy {
			q := g.Dialect.QuoteColumn(col.Table, col.Name)
			parts.columns = append(parts.columns, q)
			parts.groupBy = append(parts.groupBy, q)
		}
		operand := "*"
		if v.Col != nil {
			operand = g.Dialect.QuoteColumn(v.Col.Table, v.Col.Name)
			if err := g.checkColumnType(*v.Col, parts); err != nil {
				return err
			}
		}
		parts.columns = append(parts.columns, fmt.Sprintf("%s(%s)", v.Fn, operand))
		return g.walkSelect(v.Child, parts)

	case *ir.Filter:
		cond, err := g.pred(v.Pred)
		if err != nil {
			return err
		}
		parts.where = append(parts.where, cond)
		return g.walkSelect(v.Child, parts)

	case *ir.Join:
		if err := g.walkSelect(v.Left, parts); err != nil {
			return err
		}
		return g.renderJoin(v, parts)

	case *ir.Scan:
		parts.from = g.Dialect.QuoteIdent(v.Table)
		return nil

	default:
		return saiql.Errorf(saiql.CodeSemantic, "unexpected node %T in read query", n)
	}
}

// renderJoin emits the right side of a join as a JOIN clause. A pushed
// filter on the right side folds into WHERE for inner joins and into
// the ON condition for outer joins, where WHERE placement would change
// the result.
func (g *Generator) renderJoin(j *ir.Join, parts *selectParts) error {
	if err := g.checkJoinSupported(j.Type, parts); err != nil {
		return err
	}

	scan, pushed, err := rightScan(j.Right)
	if err != nil {
		return err
	}

	keyword := joinKeyword(j.Type)
	table := g.Dialect.QuoteIdent(scan.Table)

	if j.On == nil {
		parts.joins = append(parts.joins, joinPart{sql: "CROSS JOIN " + table})
		if pushed != nil {
			cond, err := g.pred(pushed)
			if err != nil {
				return err
			}
			parts.where = append(parts.where, cond)
		}
		return nil
	}

	on := fmt.Sprintf("%s = %s",
		g.Dialect.QuoteColumn(j.On.Left.Table, j.On.Left.Name),
		g.Dialect.QuoteColumn(j.On.Right.Table, j.On.Right.Name))

	if pushed != nil {
		cond, err := g.pred(pushed)
		if err != nil {
			return err
		}
		if j.Type == saiql.JoinInner {
			parts.where = append(parts.where, cond)
		} else {
			condSQL, condArgs, err := cond.ToSql()
			if err != nil {
				return fmt.Errorf("render join condition: %w", err)
			}
			parts.joins = append(parts.joins, joinPart{
				sql:  fmt.Sprintf("%s %s ON %s AND (%s)", keyword, table, on, condSQL),
				args: condArgs,
			})
			return nil
		}
	}

	parts.joins = append(parts.joins, joinPart{sql: fmt.Sprintf("%s %s ON %s", keyword, table, on)})
	return nil
}

func rightScan(n ir.Node) (*ir.Scan, ir.Pred, error) {
	switch v := n.(type) {
	case *ir.Scan:
		return v, nil, nil
	case *ir.Filter:
		if s, ok := v.Child.(*ir.Scan); ok {
			return s, v.Pred, nil
		}
	}
	return nil, nil, saiql.Errorf(saiql.CodeSemantic, "join input must be a table read, got %T", n)
}

func joinKeyword(t saiql.JoinType) string {
	switch t {
	case saiql.JoinLeft:
		return "LEFT JOIN"
	case saiql.JoinRight:
		return "RIGHT JOIN"
	case saiql.JoinFull:
		return "FULL OUTER JOIN"
	case saiql.JoinCross:
		return "CROSS JOIN"
	}
	return "INNER JOIN"
}

func (g *Generator) checkJoinSupported(t saiql.JoinType, parts *selectParts) error {
	var feature Feature
	switch t {
	case saiql.JoinRight:
		feature = FeatureJoinRight
	case saiql.JoinFull:
		feature = FeatureJoinFull
	default:
		return nil
	}
	detail, missing := g.Dialect.Unsupported[feature]
	if !missing {
		return nil
	}
	if g.Overrides[feature] {
		parts.warnings = append(parts.warnings, Warning{
			Kind:   WarnOverride,
			Detail: fmt.Sprintf("%s; generated anyway because override %q was supplied", detail, feature),
		})
		return nil
	}
	return saiql.Errorf(saiql.CodeUnsupported, "%s; supply override %q to generate anyway", detail, feature)
}

// checkColumnType maps the column's declared type through the registry
// and records a warning when the target representation is lossy. A
// type with no target representation aborts unless overridden.
func (g *Generator) checkColumnType(col ir.Column, parts *selectParts) error {
	table, ok := g.Catalog.Lookup(col.Table)
	if !ok {
		return nil
	}
	decl, ok := table.Column(col.Name)
	if !ok {
		return nil
	}
	c := typemap.Parse(g.SourceDialect, decl.Type)
	if c.Kind == typemap.Unknown {
		return nil
	}

	m, err := typemap.MapType(g.SourceDialect, decl.Type, g.Dialect.Name)
	if err != nil {
		feature := TypeFeature(c.Kind)
		if g.Overrides[feature] {
			parts.warnings = append(parts.warnings, Warning{
				Kind:   WarnOverride,
				Detail: fmt.Sprintf("column %s: %v; generated anyway because override %q was supplied", col, err, feature),
			})
			return nil
		}
		return err
	}
	if m.Lossy {
		parts.warnings = append(parts.warnings, Warning{
			Kind:   WarnLossy,
			Detail: fmt.Sprintf("column %s: %s", col, m.Reason),
		})
	}
	return nil
}

// --- Predicates ---

// pred translates a predicate into a squirrel expression. Literal
// operands become bound parameters without exception.
func (g *Generator) pred(p ir.Pred) (sq.Sqlizer, error) {
	switch v := p.(type) {
	case *ir.Compare:
		return g.compare(v)
	case *ir.And:
		conds := make(sq.And, 0, len(v.Conds))
		for _, c := range v.Conds {
			s, err := g.pred(c)
			if err != nil {
				return nil, err
			}
			conds = append(conds, s)
		}
		return conds, nil
	case *ir.Or:
		conds := make(sq.Or, 0, len(v.Conds))
		for _, c := range v.Conds {
			s, err := g.pred(c)
			if err != nil {
				return nil, err
			}
			conds = append(conds, s)
		}
		return conds, nil
	case *ir.Not:
		inner, err := g.pred(v.Pred)
		if err != nil {
			return nil, err
		}
		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, fmt.Errorf("render NOT: %w", err)
		}
		return sq.Expr("NOT ("+sql+")", args...), nil
	default:
		return nil, saiql.Errorf(saiql.CodeSemantic, "unexpected predicate %T", p)
	}
}

func (g *Generator) compare(cmp *ir.Compare) (sq.Sqlizer, error) {
	left, leftIsCol := cmp.Left.(ir.ColOperand)
	right, rightIsCol := cmp.Right.(ir.ColOperand)

	switch {
	case leftIsCol && rightIsCol:
		return sq.Expr(fmt.Sprintf("%s %s %s",
			g.Dialect.QuoteColumn(left.Col.Table, left.Col.Name),
			cmp.Op,
			g.Dialect.QuoteColumn(right.Col.Table, right.Col.Name))), nil

	case leftIsCol:
		val := cmp.Right.(ir.ValOperand).V
		col := g.Dialect.QuoteColumn(left.Col.Table, left.Col.Name)
		switch cmp.Op {
		case "=":
			return sq.Eq{col: val}, nil
		case "!=":
			return sq.NotEq{col: val}, nil
		default:
			return sq.Expr(fmt.Sprintf("%s %s ?", col, cmp.Op), val), nil
		}

	case rightIsCol:
		// Normalize literal-first comparisons to column-first.
		val := cmp.Left.(ir.ValOperand).V
		col := g.Dialect.QuoteColumn(right.Col.Table, right.Col.Name)
		switch cmp.Op {
		case "=":
			return sq.Eq{col: val}, nil
		case "!=":
			return sq.NotEq{col: val}, nil
		default:
			return sq.Expr(fmt.Sprintf("? %s %s", cmp.Op, col), val), nil
		}

	default:
		return nil, saiql.Errorf(saiql.CodeSemantic, "comparison between two literals")
	}
}

// --- DML ---

func (g *Generator) genInsert(stmt *ir.Insert) (*Result, error) {
	cols := make([]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = g.Dialect.QuoteIdent(c)
	}
	b := sq.Insert(g.Dialect.QuoteIdent(stmt.Table)).Columns(cols...)
	for _, row := range stmt.Rows {
		b = b.Values(row...)
	}
	sql, args, err := b.PlaceholderFormat(g.Dialect.Placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("render insert: %w", err)
	}
	return &Result{SQL: sql, Params: args}, nil
}

func (g *Generator) genUpdate(stmt *ir.Update) (*Result, error) {
	b := sq.Update(g.Dialect.QuoteIdent(stmt.Table))
	for _, set := range stmt.Sets {
		b = b.Set(g.Dialect.QuoteIdent(set.Column), set.Value)
	}
	if stmt.Filter != nil {
		cond, err := g.pred(stmt.Filter)
		if err != nil {
			return nil, err
		}
		b = b.Where(cond)
	}
	sql, args, err := b.PlaceholderFormat(g.Dialect.Placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("render update: %w", err)
	}
	return &Result{SQL: sql, Params: args}, nil
}

func (g *Generator) genDelete(stmt *ir.Delete) (*Result, error) {
	b := sq.Delete(g.Dialect.QuoteIdent(stmt.Table))
	if stmt.Filter != nil {
		cond, err := g.pred(stmt.Filter)
		if err != nil {
			return nil, err
		}
		b = b.Where(cond)
	}
	sql, args, err := b.PlaceholderFormat(g.Dialect.Placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("render delete: %w", err)
	}
	return &Result{SQL: sql, Params: args}, nil
}
