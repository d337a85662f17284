package optimizer

import (
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/saiql"
)

// pushDown moves filter predicates as close to their scans as the tree
// allows. Conjunctions are split so each conjunct travels on its own:
// a predicate touching only one side of a join drops below the join,
// while cross-table predicates stay above it.
//
// Outer joins are left alone: pushing a predicate into the padded side
// of a LEFT, RIGHT, or FULL join would change which rows survive.
func pushDown(n ir.Node) (ir.Node, bool) {
	switch v := n.(type) {
	case *ir.Filter:
		child, changed := pushDown(v.Child)
		v.Child = child

		switch inner := v.Child.(type) {
		case *ir.Filter:
			// Adjacent filters merge into one conjunction.
			merged := ir.JoinAnd(append(ir.SplitAnd(v.Pred), ir.SplitAnd(inner.Pred)...))
			return &ir.Filter{Pred: merged, Child: inner.Child}, true
		case *ir.Join:
			if inner.Type != saiql.JoinInner {
				return v, changed
			}
			moved := pushThroughJoin(v, inner)
			return moved, changed || moved != ir.Node(v)
		}
		return v, changed
	default:
		return rewriteChild(n, pushDown)
	}
}

// pushThroughJoin distributes the filter's conjuncts across an inner
// join. Returns the original filter when nothing moves.
func pushThroughJoin(f *ir.Filter, join *ir.Join) ir.Node {
	leftTables := tableSet(join.Left)
	rightTables := tableSet(join.Right)

	var toLeft, toRight, keep []ir.Pred
	for _, conj := range ir.SplitAnd(f.Pred) {
		tables := ir.PredTables(conj)
		switch {
		case len(tables) > 0 && within(tables, leftTables):
			toLeft = append(toLeft, conj)
		case len(tables) > 0 && within(tables, rightTables):
			toRight = append(toRight, conj)
		default:
			keep = append(keep, conj)
		}
	}

	if len(toLeft) == 0 && len(toRight) == 0 {
		return f
	}

	if len(toLeft) > 0 {
		join.Left = mergeFilter(join.Left, ir.JoinAnd(toLeft))
	}
	if len(toRight) > 0 {
		join.Right = mergeFilter(join.Right, ir.JoinAnd(toRight))
	}
	if len(keep) > 0 {
		return &ir.Filter{Pred: ir.JoinAnd(keep), Child: join}
	}
	return join
}

// mergeFilter wraps n in a filter, folding into an existing one so
// repeated pushes stay idempotent.
func mergeFilter(n ir.Node, pred ir.Pred) ir.Node {
	if f, ok := n.(*ir.Filter); ok {
		f.Pred = ir.JoinAnd(append(ir.SplitAnd(f.Pred), ir.SplitAnd(pred)...))
		return f
	}
	return &ir.Filter{Pred: pred, Child: n}
}

func tableSet(n ir.Node) map[string]bool {
	set := make(map[string]bool)
	for _, t := range ir.Tables(n) {
		set[t] = true
	}
	return set
}

func within(tables, allowed map[string]bool) bool {
	for t := range tables {
		if !allowed[t] {
			return false
		}
	}
	return true
}
