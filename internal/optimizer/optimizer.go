// Package optimizer rewrites the operator tree into an observably
// equivalent but cheaper one. Rules run to a fixed point; each rule is
// idempotent, so re-optimizing an optimized tree changes nothing.
package optimizer

import (
	"context"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/ir"
)

// MetadataView supplies cardinality estimates and index availability.
// It is an in-memory snapshot handed in by the caller, never a network
// call made from here.
type MetadataView interface {
	Estimate(table string, pred ir.Pred) catalog.Estimate
}

// Warning is a non-fatal diagnostic attached to the compile result.
type Warning struct {
	Kind   string
	Detail string
}

// WarnTimeout is the Warning.Kind used when the deadline cuts the
// rewrite short.
const WarnTimeout = "optimizer-timeout"

// maxPasses caps the fixed-point loop independently of the deadline.
const maxPasses = 16

// Optimizer applies the rewrite rules. Meta is required.
type Optimizer struct {
	Meta MetadataView
}

// A rule rewrites a tree and reports whether anything changed.
type rule func(ir.Node) (ir.Node, bool)

// Optimize rewrites root until no rule fires. The context deadline is
// polled between passes, never inside a rule; on expiry the best tree
// so far is returned with a timeout warning. Optimization never fails
// a compile.
func (o *Optimizer) Optimize(ctx context.Context, root ir.Node) (ir.Node, []Warning) {
	rules := []rule{
		pushDown,
		o.reorderJoins,
		pruneColumns,
		o.chooseAccess,
	}

	var warnings []Warning
	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, Warning{
				Kind:   WarnTimeout,
				Detail: "optimization stopped early, returning best tree so far",
			})
			return root, warnings
		}

		changed := false
		for _, r := range rules {
			var c bool
			root, c = r(root)
			changed = changed || c
		}
		if !changed {
			break
		}
	}
	return root, warnings
}

// rewriteChild applies fn to every direct child and rebuilds the node
// in place. Shared walking logic for the rules.
func rewriteChild(n ir.Node, fn func(ir.Node) (ir.Node, bool)) (ir.Node, bool) {
	switch v := n.(type) {
	case *ir.Filter:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	case *ir.Project:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	case *ir.Join:
		left, lc := fn(v.Left)
		right, rc := fn(v.Right)
		v.Left, v.Right = left, right
		return v, lc || rc
	case *ir.Aggregate:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	case *ir.Sort:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	case *ir.Limit:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	case *ir.Sink:
		child, changed := fn(v.Child)
		v.Child = child
		return v, changed
	default:
		// Scans and DML statements have no rewritable children.
		return n, false
	}
}
