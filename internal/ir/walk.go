package ir

// PredColumns returns every column referenced by a predicate, in
// left-to-right order.
func PredColumns(p Pred) []Column {
	var cols []Column
	var walk func(Pred)
	walk = func(p Pred) {
		switch v := p.(type) {
		case *Compare:
			if c, ok := v.Left.(ColOperand); ok {
				cols = append(cols, c.Col)
			}
			if c, ok := v.Right.(ColOperand); ok {
				cols = append(cols, c.Col)
			}
		case *And:
			for _, c := range v.Conds {
				walk(c)
			}
		case *Or:
			for _, c := range v.Conds {
				walk(c)
			}
		case *Not:
			walk(v.Pred)
		}
	}
	if p != nil {
		walk(p)
	}
	return cols
}

// PredTables returns the set of tables a predicate touches.
func PredTables(p Pred) map[string]bool {
	tables := make(map[string]bool)
	for _, c := range PredColumns(p) {
		tables[c.Table] = true
	}
	return tables
}

// SplitAnd flattens a predicate into its top-level conjuncts. A
// non-conjunction comes back as a single-element slice.
func SplitAnd(p Pred) []Pred {
	if p == nil {
		return nil
	}
	and, ok := p.(*And)
	if !ok {
		return []Pred{p}
	}
	var out []Pred
	for _, c := range and.Conds {
		out = append(out, SplitAnd(c)...)
	}
	return out
}

// JoinAnd re-forms conjuncts into a single predicate. Returns nil for
// an empty slice and the sole element for a singleton.
func JoinAnd(conds []Pred) Pred {
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return &And{Conds: conds}
	}
}

// Scans returns every scan node in the tree, left to right.
func Scans(n Node) []*Scan {
	var out []*Scan
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Scan:
			out = append(out, v)
		case *Filter:
			walk(v.Child)
		case *Project:
			walk(v.Child)
		case *Join:
			walk(v.Left)
			walk(v.Right)
		case *Aggregate:
			walk(v.Child)
		case *Sort:
			walk(v.Child)
		case *Limit:
			walk(v.Child)
		case *Sink:
			walk(v.Child)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// Tables returns the tables scanned by the tree, left to right. The
// order reflects the join order after optimization.
func Tables(n Node) []string {
	var tables []string
	for _, s := range Scans(n) {
		tables = append(tables, s.Table)
	}
	return tables
}
