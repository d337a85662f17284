package optimizer

import (
	"strings"

	"github.com/saiqldb/saiql/internal/ir"
)

// pruneColumns computes the minimal column set each ancestor actually
// needs and narrows every scan to it. A scan feeding only COUNT(*)
// keeps a single column so it still has something to read.
func pruneColumns(root ir.Node) (ir.Node, bool) {
	needed := make(map[ir.Column]bool)
	changed := collectAndPrune(root, needed, false)
	return root, changed
}

// collectAndPrune walks top-down, accumulating the columns required
// above each node, then narrows scans at the leaves. all marks
// subtrees whose full output is required (no Project or Aggregate
// between them and the root).
func collectAndPrune(n ir.Node, needed map[ir.Column]bool, all bool) bool {
	switch v := n.(type) {
	case *ir.Sink:
		return collectAndPrune(v.Child, needed, true)
	case *ir.Limit:
		return collectAndPrune(v.Child, needed, all)
	case *ir.Sort:
		for _, item := range v.Items {
			needed[item.Col] = true
		}
		return collectAndPrune(v.Child, needed, all)
	case *ir.Project:
		// The projection defines exactly what survives above it.
		scoped := make(map[ir.Column]bool)
		for _, c := range v.Columns {
			scoped[c] = true
		}
		for c := range needed {
			scoped[c] = true
		}
		return collectAndPrune(v.Child, scoped, false)
	case *ir.Aggregate:
		scoped := make(map[ir.Column]bool)
		if v.Col != nil {
			scoped[*v.Col] = true
		}
		for _, c := range v.GroupBy {
			scoped[c] = true
		}
		return collectAndPrune(v.Child, scoped, false)
	case *ir.Filter:
		for _, c := range ir.PredColumns(v.Pred) {
			needed[c] = true
		}
		return collectAndPrune(v.Child, needed, all)
	case *ir.Join:
		if v.On != nil {
			needed[v.On.Left] = true
			needed[v.On.Right] = true
		}
		lc := collectAndPrune(v.Left, needed, all)
		rc := collectAndPrune(v.Right, needed, all)
		return lc || rc
	case *ir.Scan:
		if all {
			return false
		}
		return narrowScan(v, needed)
	default:
		return false
	}
}

// narrowScan drops scan columns nothing above requires, preserving
// catalog order.
func narrowScan(s *ir.Scan, needed map[ir.Column]bool) bool {
	var kept []string
	for _, name := range s.Columns {
		if needed[ir.Column{Table: s.Table, Name: name}] || neededFold(needed, s.Table, name) {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 && len(s.Columns) > 0 {
		kept = s.Columns[:1]
	}
	if len(kept) == len(s.Columns) {
		return false
	}
	s.Columns = kept
	return true
}

// neededFold retries the lookup case-insensitively; catalogs and
// queries may disagree on identifier case.
func neededFold(needed map[ir.Column]bool, table, name string) bool {
	for c := range needed {
		if strings.EqualFold(c.Table, table) && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
