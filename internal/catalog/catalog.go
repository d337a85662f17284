// Package catalog supplies the read-only schema and index metadata the
// compiler resolves queries against. A catalog is a snapshot: the
// compiler never mutates it and never reaches over the network for it.
package catalog

import (
	"strings"

	"github.com/saiqldb/saiql/internal/ir"
)

// Column describes one column of a table. Type is the declared type
// signature in the catalog's source dialect, e.g. "varchar(255)".
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// Table describes one table. Rows is the estimated row count used for
// cost decisions; zero means unknown.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
	Rows    int64    `yaml:"rows"`
}

// Column returns the named column, if declared.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Index describes a secondary index available to access-path selection.
type Index struct {
	Name    string   `yaml:"name"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// View is the schema lookup interface the validator resolves against.
type View interface {
	Lookup(table string) (Table, bool)
}

// Memory is an immutable in-memory catalog.
type Memory struct {
	tables map[string]Table
}

// NewMemory builds a catalog from table definitions.
func NewMemory(tables ...Table) *Memory {
	m := &Memory{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		m.tables[strings.ToLower(t.Name)] = t
	}
	return m
}

// Lookup returns the named table, if declared. Names are matched
// case-insensitively.
func (m *Memory) Lookup(table string) (Table, bool) {
	t, ok := m.tables[strings.ToLower(table)]
	return t, ok
}

// Estimate is the answer index metadata gives the optimizer for one
// table under one predicate.
type Estimate struct {
	Cardinality int64
	Indexes     []Index
}

// Stats derives cardinality estimates from catalog row counts and the
// declared indexes. It is the in-memory stand-in for a real statistics
// collector and is deterministic by construction.
type Stats struct {
	catalog *Memory
	indexes map[string][]Index
}

// NewStats builds a metadata view over a catalog.
func NewStats(catalog *Memory, indexes ...Index) *Stats {
	s := &Stats{catalog: catalog, indexes: make(map[string][]Index)}
	for _, idx := range indexes {
		key := strings.ToLower(idx.Table)
		s.indexes[key] = append(s.indexes[key], idx)
	}
	return s
}

const defaultTableRows = 1000

// Selectivity divisors. Equality is assumed to keep one row in ten,
// a range comparison one row in three; a unique index pins equality
// to a single row.
const (
	eqSelectivity    = 10
	rangeSelectivity = 3
)

// Estimate reports the expected output cardinality of scanning table
// under pred, plus the indexes declared on the table.
func (s *Stats) Estimate(table string, pred ir.Pred) Estimate {
	rows := defaultTableRows
	if t, ok := s.catalog.Lookup(table); ok && t.Rows > 0 {
		rows = int(t.Rows)
	}

	indexes := s.indexes[strings.ToLower(table)]

	card := int64(rows)
	for _, conj := range ir.SplitAnd(pred) {
		cmp, ok := conj.(*ir.Compare)
		if !ok {
			continue
		}
		col, lit := splitSides(cmp)
		if col == nil || !strings.EqualFold(col.Table, table) || !lit {
			continue
		}
		switch cmp.Op {
		case "=":
			if uniqueOn(indexes, col.Name) {
				card = 1
				continue
			}
			card /= eqSelectivity
		case "<", "<=", ">", ">=":
			card /= rangeSelectivity
		}
		if card < 1 {
			card = 1
		}
	}

	return Estimate{Cardinality: card, Indexes: indexes}
}

// splitSides reports the column side of a comparison and whether the
// other side is a literal.
func splitSides(cmp *ir.Compare) (*ir.Column, bool) {
	if c, ok := cmp.Left.(ir.ColOperand); ok {
		_, lit := cmp.Right.(ir.ValOperand)
		return &c.Col, lit
	}
	if c, ok := cmp.Right.(ir.ColOperand); ok {
		_, lit := cmp.Left.(ir.ValOperand)
		return &c.Col, lit
	}
	return nil, false
}

func uniqueOn(indexes []Index, column string) bool {
	for _, idx := range indexes {
		if idx.Unique && len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], column) {
			return true
		}
	}
	return false
}
