package optimizer

import (
	"strings"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/ir"
)

// chooseAccess compares an index lookup against a full scan for every
// scan node and records the cheaper path. A qualifying index is one
// whose leading column carries an equality or range predicate on the
// scan's table.
func (o *Optimizer) chooseAccess(root ir.Node) (ir.Node, bool) {
	changed := false
	var walk func(n ir.Node, pred ir.Pred)
	walk = func(n ir.Node, pred ir.Pred) {
		switch v := n.(type) {
		case *ir.Filter:
			walk(v.Child, v.Pred)
		case *ir.Project:
			walk(v.Child, nil)
		case *ir.Join:
			walk(v.Left, nil)
			walk(v.Right, nil)
		case *ir.Aggregate:
			walk(v.Child, nil)
		case *ir.Sort:
			walk(v.Child, nil)
		case *ir.Limit:
			walk(v.Child, nil)
		case *ir.Sink:
			walk(v.Child, nil)
		case *ir.Scan:
			if o.decideAccess(v, pred) {
				changed = true
			}
		}
	}
	walk(root, nil)
	return root, changed
}

// decideAccess picks the access path for one scan given the predicate
// sitting directly above it, if any. Reports whether the recorded path
// changed.
func (o *Optimizer) decideAccess(s *ir.Scan, pred ir.Pred) bool {
	full := o.Meta.Estimate(s.Table, nil)
	chosen := ir.AccessPath{Kind: ir.AccessFullScan, Rows: full.Cardinality}

	if pred != nil {
		filtered := o.Meta.Estimate(s.Table, pred)
		if idx := qualifyingIndex(s.Table, pred, filtered.Indexes); idx != "" &&
			filtered.Cardinality < full.Cardinality {
			chosen = ir.AccessPath{Kind: ir.AccessIndex, Index: idx, Rows: filtered.Cardinality}
		} else {
			chosen.Rows = filtered.Cardinality
		}
	}

	if s.Access == chosen {
		return false
	}
	s.Access = chosen
	return true
}

// qualifyingIndex returns the first declared index whose leading
// column appears in an equality or range conjunct on the table.
// Declaration order makes the pick deterministic.
func qualifyingIndex(table string, pred ir.Pred, indexes []catalog.Index) string {
	predicated := make(map[string]bool)
	for _, conj := range ir.SplitAnd(pred) {
		cmp, ok := conj.(*ir.Compare)
		if !ok {
			continue
		}
		switch cmp.Op {
		case "=", "<", "<=", ">", ">=":
		default:
			continue
		}
		for _, col := range ir.PredColumns(cmp) {
			if strings.EqualFold(col.Table, table) {
				predicated[strings.ToLower(col.Name)] = true
			}
		}
	}

	for _, idx := range indexes {
		if len(idx.Columns) == 0 || !strings.EqualFold(idx.Table, table) {
			continue
		}
		if predicated[strings.ToLower(idx.Columns[0])] {
			return idx.Name
		}
	}
	return ""
}
