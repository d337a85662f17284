package optimizer

import (
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/saiql"
)

// relation is one input of a join chain: a scan, possibly with its
// pushed-down filter on top.
type relation struct {
	node  ir.Node
	table string
	pred  ir.Pred
	card  int64
	idx   int // position in the original chain, the tie breaker
}

// reorderJoins rewrites chains of inner equi-joins into the greedy
// order that keeps estimated intermediate cardinality small. Ties
// break on input order, so the result is deterministic and a second
// run reproduces it exactly. Outer and cross joins never move.
func (o *Optimizer) reorderJoins(n ir.Node) (ir.Node, bool) {
	if j, ok := n.(*ir.Join); ok {
		if rebuilt, ok, changed := o.tryReorder(j); ok {
			return rebuilt, changed
		}
	}
	return rewriteChild(n, o.reorderJoins)
}

func (o *Optimizer) tryReorder(root *ir.Join) (ir.Node, bool, bool) {
	rels, conds, ok := collectChain(root)
	if !ok || len(rels) < 2 {
		return nil, false, false
	}

	for i := range rels {
		rels[i].idx = i
		rels[i].card = o.Meta.Estimate(rels[i].table, rels[i].pred).Cardinality
	}

	order := greedyOrder(rels, conds)

	changed := false
	for i, r := range order {
		if r.idx != i {
			changed = true
			break
		}
	}

	rebuilt := rebuildChain(order, conds)
	return rebuilt, true, changed
}

// collectChain flattens a left-deep (or bushy) run of inner equi-joins
// into its relations and conditions. ok is false when the chain holds
// anything but inner joins over scans.
func collectChain(n ir.Node) ([]relation, []*ir.Equi, bool) {
	if j, ok := n.(*ir.Join); ok && j.Type == saiql.JoinInner && j.On != nil {
		left, lconds, ok := collectChain(j.Left)
		if !ok {
			return nil, nil, false
		}
		right, rconds, ok := collectChain(j.Right)
		if !ok {
			return nil, nil, false
		}
		rels := append(left, right...)
		conds := append(append(lconds, rconds...), j.On)
		return rels, conds, true
	}

	switch v := n.(type) {
	case *ir.Scan:
		return []relation{{node: v, table: v.Table}}, nil, true
	case *ir.Filter:
		if s, ok := v.Child.(*ir.Scan); ok {
			return []relation{{node: v, table: s.Table, pred: v.Pred}}, nil, true
		}
	}
	return nil, nil, false
}

// greedyOrder starts from the smallest relation and repeatedly joins
// the smallest relation connected to the set built so far. When no
// remaining relation is connected, the next one in input order joins
// as a cartesian step.
func greedyOrder(rels []relation, conds []*ir.Equi) []relation {
	remaining := make([]relation, len(rels))
	copy(remaining, rels)

	takeAt := func(i int) relation {
		r := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)
		return r
	}

	smallest := 0
	for i, r := range remaining {
		if r.card < remaining[smallest].card {
			smallest = i
		}
	}

	order := []relation{takeAt(smallest)}
	joined := map[string]bool{order[0].table: true}

	for len(remaining) > 0 {
		pick := -1
		for i, r := range remaining {
			if !connected(joined, r.table, conds) {
				continue
			}
			if pick == -1 || r.card < remaining[pick].card {
				pick = i
			}
		}
		if pick == -1 {
			pick = 0
			for i := range remaining {
				if remaining[i].idx < remaining[pick].idx {
					pick = i
				}
			}
		}
		r := takeAt(pick)
		joined[r.table] = true
		order = append(order, r)
	}
	return order
}

func connected(joined map[string]bool, table string, conds []*ir.Equi) bool {
	for _, c := range conds {
		if joined[c.Left.Table] && c.Right.Table == table {
			return true
		}
		if joined[c.Right.Table] && c.Left.Table == table {
			return true
		}
	}
	return false
}

// rebuildChain re-forms a left-deep inner join tree over the chosen
// order, attaching each condition at the first join where both sides
// are present. Conditions that connect already-joined tables become a
// filter on top.
func rebuildChain(order []relation, conds []*ir.Equi) ir.Node {
	used := make([]bool, len(conds))
	joined := map[string]bool{order[0].table: true}
	var root ir.Node = order[0].node

	for _, r := range order[1:] {
		var on *ir.Equi
		var extra []ir.Pred
		for i, c := range conds {
			if used[i] {
				continue
			}
			touches := (joined[c.Left.Table] && c.Right.Table == r.table) ||
				(joined[c.Right.Table] && c.Left.Table == r.table)
			if !touches {
				continue
			}
			used[i] = true
			if on == nil {
				on = c
			} else {
				extra = append(extra, equiPred(c))
			}
		}

		root = &ir.Join{Type: saiql.JoinInner, Left: root, Right: r.node, On: on}
		joined[r.table] = true
		if len(extra) > 0 {
			root = &ir.Filter{Pred: ir.JoinAnd(extra), Child: root}
		}
	}

	var leftover []ir.Pred
	for i, c := range conds {
		if !used[i] {
			leftover = append(leftover, equiPred(c))
		}
	}
	if len(leftover) > 0 {
		root = &ir.Filter{Pred: ir.JoinAnd(leftover), Child: root}
	}
	return root
}

func equiPred(c *ir.Equi) ir.Pred {
	return &ir.Compare{Op: "=", Left: ir.ColOperand{Col: c.Left}, Right: ir.ColOperand{Col: c.Right}}
}
