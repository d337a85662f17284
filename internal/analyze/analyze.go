// Package analyze resolves a parsed query against the schema catalog
// and lowers it into the canonical operator tree. Resolution is
// fail-fast: the first unknown reference or type mismatch aborts and no
// partial IR escapes.
package analyze

import (
	"strconv"
	"strings"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/saiql"
	"github.com/saiqldb/saiql/internal/typemap"
)

// Verdict is the firewall's answer for one query.
type Verdict struct {
	Allow  bool
	Reason string
}

// Inspector is the injection-pattern firewall hook. The builder calls
// it exactly once per query, synchronously, before lowering.
type Inspector interface {
	Inspect(query string) Verdict
}

// AllowAll is an Inspector that passes every query. Callers without a
// firewall inject it explicitly.
type AllowAll struct{}

func (AllowAll) Inspect(string) Verdict { return Verdict{Allow: true} }

// Builder lowers validated ASTs. All fields are required.
type Builder struct {
	Catalog  catalog.View
	Firewall Inspector

	// SourceDialect names the dialect the catalog's column types are
	// declared in. It drives literal type checks.
	SourceDialect string
}

// Build validates q against the catalog and lowers it. raw is the
// original query text handed to the firewall.
func (b *Builder) Build(raw string, q saiql.Query) (ir.Node, error) {
	if v := b.Firewall.Inspect(raw); !v.Allow {
		return nil, saiql.Errorf(saiql.CodeRejected, "query rejected by firewall: %s", v.Reason)
	}

	switch stmt := q.(type) {
	case *saiql.SelectQuery:
		return b.buildSelect(stmt)
	case *saiql.InsertQuery:
		return b.buildInsert(stmt)
	case *saiql.UpdateQuery:
		return b.buildUpdate(stmt)
	case *saiql.DeleteQuery:
		return b.buildDelete(stmt)
	default:
		return nil, saiql.Errorf(saiql.CodeSemantic, "unsupported statement type %T", q)
	}
}

// scope tracks the tables a query reads, in FROM order.
type scope struct {
	order  []string
	tables map[string]catalog.Table
}

func (b *Builder) resolveTables(refs []saiql.TableRef) (*scope, error) {
	s := &scope{tables: make(map[string]catalog.Table, len(refs))}
	for _, ref := range refs {
		t, ok := b.Catalog.Lookup(ref.Name)
		if !ok {
			return nil, semanticAt(ref.Pos, "unknown table %q", ref.Name)
		}
		key := strings.ToLower(ref.Name)
		if _, dup := s.tables[key]; dup {
			return nil, semanticAt(ref.Pos, "table %q referenced twice", ref.Name)
		}
		s.tables[key] = t
		s.order = append(s.order, ref.Name)
	}
	return s, nil
}

// resolveColumn finds the owning table and declared type of a column
// reference. Unqualified names must be unambiguous across the scope.
func (s *scope) resolveColumn(ref saiql.ColumnRef) (ir.Column, catalog.Column, error) {
	if ref.Table != "" {
		t, ok := s.tables[strings.ToLower(ref.Table)]
		if !ok {
			return ir.Column{}, catalog.Column{}, semanticAt(ref.Pos, "table %q is not part of this query", ref.Table)
		}
		col, ok := t.Column(ref.Name)
		if !ok {
			return ir.Column{}, catalog.Column{}, semanticAt(ref.Pos, "unknown column %q in table %q", ref.Name, ref.Table)
		}
		return ir.Column{Table: t.Name, Name: col.Name}, col, nil
	}

	var (
		found ir.Column
		decl  catalog.Column
		hits  int
	)
	for _, name := range s.order {
		t := s.tables[strings.ToLower(name)]
		if col, ok := t.Column(ref.Name); ok {
			found = ir.Column{Table: t.Name, Name: col.Name}
			decl = col
			hits++
		}
	}
	switch hits {
	case 0:
		return ir.Column{}, catalog.Column{}, semanticAt(ref.Pos, "unknown column %q", ref.Name)
	case 1:
		return found, decl, nil
	default:
		return ir.Column{}, catalog.Column{}, semanticAt(ref.Pos, "ambiguous column %q, qualify it with a table name", ref.Name)
	}
}

func (b *Builder) buildSelect(q *saiql.SelectQuery) (ir.Node, error) {
	sc, err := b.resolveTables(q.Tables)
	if err != nil {
		return nil, err
	}

	// Base access tree: scans folded left through the join clauses.
	first := scanOf(sc, q.Tables[0].Name)
	var root ir.Node = first
	joined := map[string]bool{strings.ToLower(first.Table): true}
	for _, join := range q.Joins {
		right := scanOf(sc, join.Table.Name)
		j := &ir.Join{Type: join.Type, Left: root, Right: right}
		joined[strings.ToLower(right.Table)] = true
		if join.On != nil {
			left, _, err := sc.resolveColumn(join.On.Left)
			if err != nil {
				return nil, err
			}
			rcol, _, err := sc.resolveColumn(join.On.Right)
			if err != nil {
				return nil, err
			}
			// Each ON pair belongs to the join that introduces one of
			// its tables; a pair naming a later table would render SQL
			// that reads the table before it is joined.
			if !strings.EqualFold(left.Table, right.Table) && !strings.EqualFold(rcol.Table, right.Table) {
				return nil, semanticAt(join.On.Left.Pos,
					"join condition %s = %s does not reference joined table %q", left, rcol, right.Table)
			}
			if !joined[strings.ToLower(left.Table)] || !joined[strings.ToLower(rcol.Table)] {
				return nil, semanticAt(join.On.Left.Pos,
					"join condition %s = %s references a table not yet joined", left, rcol)
			}
			j.On = &ir.Equi{Left: left, Right: rcol}
		}
		root = j
	}

	if q.Filter != nil {
		pred, err := b.lowerCondition(sc, q.Filter)
		if err != nil {
			return nil, err
		}
		root = &ir.Filter{Pred: pred, Child: root}
	}

	// Wildcards are expanded here so later stages never special-case
	// them.
	columns, err := b.projection(sc, q)
	if err != nil {
		return nil, err
	}

	if q.Agg != saiql.AggNone {
		agg := &ir.Aggregate{Fn: q.Agg, Child: root}
		if q.AggCol != nil {
			col, decl, err := sc.resolveColumn(*q.AggCol)
			if err != nil {
				return nil, err
			}
			if q.Agg == saiql.AggSum || q.Agg == saiql.AggAvg {
				if kind := b.columnKind(decl); !kind.IsNumeric() {
					return nil, semanticAt(q.AggCol.Pos, "%s needs a numeric column, %s is %s", q.Agg, col, decl.Type)
				}
			}
			agg.Col = &col
		}
		for _, g := range q.GroupBy {
			col, _, err := sc.resolveColumn(g)
			if err != nil {
				return nil, err
			}
			agg.GroupBy = append(agg.GroupBy, col)
		}
		// Every plain select-list column must be grouped; dropping it
		// silently would change the result shape.
		if !q.Wildcard {
			grouped := make(map[ir.Column]bool, len(agg.GroupBy))
			for _, g := range agg.GroupBy {
				grouped[g] = true
			}
			for i, col := range columns {
				if !grouped[col] {
					return nil, semanticAt(q.Columns[i].Pos, "column %s must appear in GROUP BY when aggregating", col)
				}
			}
		}
		root = agg
	} else {
		if len(q.GroupBy) > 0 {
			return nil, saiql.Errorf(saiql.CodeSemantic, "GROUP BY without an aggregate")
		}
		root = &ir.Project{Columns: columns, Distinct: q.Distinct, Child: root}
	}

	root, err = b.orderAndLimit(sc, q, columns, root)
	if err != nil {
		return nil, err
	}

	return &ir.Sink{Format: q.Sink, Child: root}, nil
}

// projection resolves the output column list, expanding a wildcard to
// every column of every table in FROM order.
func (b *Builder) projection(sc *scope, q *saiql.SelectQuery) ([]ir.Column, error) {
	if q.Wildcard {
		var cols []ir.Column
		for _, name := range sc.order {
			t := sc.tables[strings.ToLower(name)]
			for _, c := range t.Columns {
				cols = append(cols, ir.Column{Table: t.Name, Name: c.Name})
			}
		}
		return cols, nil
	}

	var cols []ir.Column
	for _, ref := range q.Columns {
		col, _, err := sc.resolveColumn(ref)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// orderAndLimit lowers ORDER BY plus the limit forms. *LAST reverses
// the order of the first output column; *RANDOM requests a shuffled
// order.
func (b *Builder) orderAndLimit(sc *scope, q *saiql.SelectQuery, columns []ir.Column, root ir.Node) (ir.Node, error) {
	var items []ir.SortItem
	for _, o := range q.OrderBy {
		col, _, err := sc.resolveColumn(o.Col)
		if err != nil {
			return nil, err
		}
		items = append(items, ir.SortItem{Col: col, Desc: o.Desc})
	}
	if len(items) > 0 {
		root = &ir.Sort{Items: items, Child: root}
	}

	if q.Limit == nil {
		return root, nil
	}
	switch q.Limit.Kind {
	case saiql.LimitAll:
		return root, nil
	case saiql.LimitCount, saiql.LimitFirst:
		return &ir.Limit{N: q.Limit.N, Child: root}, nil
	case saiql.LimitLast:
		if len(columns) == 0 {
			return nil, saiql.Errorf(saiql.CodeSemantic, "*LAST needs at least one output column")
		}
		root = &ir.Sort{Items: []ir.SortItem{{Col: columns[0], Desc: true}}, Child: root}
		return &ir.Limit{N: 1, Child: root}, nil
	case saiql.LimitRandom:
		root = &ir.Sort{Random: true, Child: root}
		return &ir.Limit{N: q.Limit.N, Child: root}, nil
	}
	return root, nil
}

func scanOf(sc *scope, table string) *ir.Scan {
	t := sc.tables[strings.ToLower(table)]
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	return &ir.Scan{Table: t.Name, Columns: cols}
}

// --- Conditions ---

func (b *Builder) lowerCondition(sc *scope, n saiql.Node) (ir.Pred, error) {
	switch v := n.(type) {
	case *saiql.BinaryOp:
		switch v.Op {
		case "and":
			left, err := b.lowerCondition(sc, v.Left)
			if err != nil {
				return nil, err
			}
			right, err := b.lowerCondition(sc, v.Right)
			if err != nil {
				return nil, err
			}
			return &ir.And{Conds: append(ir.SplitAnd(left), ir.SplitAnd(right)...)}, nil
		case "or":
			left, err := b.lowerCondition(sc, v.Left)
			if err != nil {
				return nil, err
			}
			right, err := b.lowerCondition(sc, v.Right)
			if err != nil {
				return nil, err
			}
			return &ir.Or{Conds: []ir.Pred{left, right}}, nil
		default:
			return b.lowerComparison(sc, v)
		}
	case *saiql.NotExpr:
		inner, err := b.lowerCondition(sc, v.Expr)
		if err != nil {
			return nil, err
		}
		return &ir.Not{Pred: inner}, nil
	default:
		return nil, saiql.Errorf(saiql.CodeSemantic, "unexpected condition node %T", n)
	}
}

func (b *Builder) lowerComparison(sc *scope, cmp *saiql.BinaryOp) (ir.Pred, error) {
	left, leftDecl, err := b.lowerOperand(sc, cmp.Left)
	if err != nil {
		return nil, err
	}
	right, rightDecl, err := b.lowerOperand(sc, cmp.Right)
	if err != nil {
		return nil, err
	}

	// A literal compared to a column must match the column's type
	// class; two columns must agree with each other.
	if err := b.checkComparable(cmp, left, leftDecl, right, rightDecl); err != nil {
		return nil, err
	}

	return &ir.Compare{Op: cmp.Op, Left: left, Right: right}, nil
}

func (b *Builder) lowerOperand(sc *scope, n saiql.Node) (ir.Operand, *catalog.Column, error) {
	switch v := n.(type) {
	case *saiql.ColumnRef:
		col, decl, err := sc.resolveColumn(*v)
		if err != nil {
			return nil, nil, err
		}
		return ir.ColOperand{Col: col}, &decl, nil
	case *saiql.Literal:
		val, err := literalValue(v)
		if err != nil {
			return nil, nil, err
		}
		return ir.ValOperand{V: val}, nil, nil
	default:
		return nil, nil, saiql.Errorf(saiql.CodeSemantic, "unexpected operand node %T", n)
	}
}

func (b *Builder) checkComparable(cmp *saiql.BinaryOp, left ir.Operand, leftDecl *catalog.Column, right ir.Operand, rightDecl *catalog.Column) error {
	if leftDecl != nil && rightDecl != nil {
		lk, rk := b.columnKind(*leftDecl), b.columnKind(*rightDecl)
		if lk.IsNumeric() != rk.IsNumeric() {
			return saiql.Errorf(saiql.CodeSemantic, "cannot compare %s column with %s column",
				leftDecl.Type, rightDecl.Type)
		}
		return nil
	}

	decl := leftDecl
	lit, _ := right.(ir.ValOperand)
	if decl == nil {
		decl = rightDecl
		lit, _ = left.(ir.ValOperand)
	}
	if decl == nil {
		return saiql.Errorf(saiql.CodeSemantic, "comparison %q needs at least one column", cmp.Op)
	}
	return b.checkLiteral(decl, lit.V)
}

func (b *Builder) checkLiteral(decl *catalog.Column, v any) error {
	kind := b.columnKind(*decl)
	switch v.(type) {
	case int64, float64:
		if !kind.IsNumeric() {
			return saiql.Errorf(saiql.CodeSemantic, "numeric literal does not match %s column %q", decl.Type, decl.Name)
		}
	case bool:
		if kind != typemap.Boolean && !kind.IsNumeric() {
			return saiql.Errorf(saiql.CodeSemantic, "boolean literal does not match %s column %q", decl.Type, decl.Name)
		}
	case string:
		if kind.IsNumeric() || kind == typemap.Boolean {
			return saiql.Errorf(saiql.CodeSemantic, "string literal does not match %s column %q", decl.Type, decl.Name)
		}
	}
	return nil
}

func (b *Builder) columnKind(c catalog.Column) typemap.Kind {
	return typemap.Parse(b.SourceDialect, c.Type).Kind
}

// --- DML ---

func (b *Builder) buildInsert(q *saiql.InsertQuery) (ir.Node, error) {
	sc, err := b.resolveTables([]saiql.TableRef{q.Table})
	if err != nil {
		return nil, err
	}
	t := sc.tables[strings.ToLower(q.Table.Name)]

	decls := make([]catalog.Column, len(q.Columns))
	for i, name := range q.Columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, semanticAt(q.Pos, "unknown column %q in table %q", name, t.Name)
		}
		decls[i] = col
	}

	out := &ir.Insert{Table: t.Name, Columns: q.Columns}
	for _, row := range q.Rows {
		vals := make([]any, len(row))
		for i, n := range row {
			lit, ok := n.(*saiql.Literal)
			if !ok {
				return nil, saiql.Errorf(saiql.CodeSemantic, "INSERT values must be literals, got %T", n)
			}
			v, err := literalValue(lit)
			if err != nil {
				return nil, err
			}
			if err := b.checkLiteral(&decls[i], v); err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, nil
}

func (b *Builder) buildUpdate(q *saiql.UpdateQuery) (ir.Node, error) {
	sc, err := b.resolveTables([]saiql.TableRef{q.Table})
	if err != nil {
		return nil, err
	}
	t := sc.tables[strings.ToLower(q.Table.Name)]

	out := &ir.Update{Table: t.Name}
	for _, set := range q.Sets {
		decl, ok := t.Column(set.Column)
		if !ok {
			return nil, semanticAt(q.Pos, "unknown column %q in table %q", set.Column, t.Name)
		}
		lit, ok := set.Value.(*saiql.Literal)
		if !ok {
			return nil, saiql.Errorf(saiql.CodeSemantic, "SET values must be literals, got %T", set.Value)
		}
		v, err := literalValue(lit)
		if err != nil {
			return nil, err
		}
		if err := b.checkLiteral(&decl, v); err != nil {
			return nil, err
		}
		out.Sets = append(out.Sets, ir.Set{Column: decl.Name, Value: v})
	}

	if q.Filter != nil {
		pred, err := b.lowerCondition(sc, q.Filter)
		if err != nil {
			return nil, err
		}
		out.Filter = pred
	}
	return out, nil
}

func (b *Builder) buildDelete(q *saiql.DeleteQuery) (ir.Node, error) {
	sc, err := b.resolveTables([]saiql.TableRef{q.Table})
	if err != nil {
		return nil, err
	}
	t := sc.tables[strings.ToLower(q.Table.Name)]

	out := &ir.Delete{Table: t.Name}
	if q.Filter != nil {
		pred, err := b.lowerCondition(sc, q.Filter)
		if err != nil {
			return nil, err
		}
		out.Filter = pred
	}
	return out, nil
}

// --- Helpers ---

func literalValue(lit *saiql.Literal) (any, error) {
	switch lit.Kind {
	case saiql.TokString:
		return lit.Value, nil
	case saiql.TokNumber:
		if !strings.Contains(lit.Value, ".") {
			if n, err := strconv.ParseInt(lit.Value, 10, 64); err == nil {
				return n, nil
			}
		}
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, saiql.Errorf(saiql.CodeSemantic, "invalid numeric literal %q", lit.Value)
		}
		return f, nil
	case saiql.TokTrue:
		return true, nil
	case saiql.TokFalse:
		return false, nil
	}
	return nil, saiql.Errorf(saiql.CodeSemantic, "unexpected literal kind %s", lit.Kind)
}

func semanticAt(pos int, format string, args ...any) error {
	return saiql.ErrorAt(saiql.CodeSemantic, pos, 0, 0, format, args...)
}
