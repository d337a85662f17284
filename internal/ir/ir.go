// Package ir defines the canonical operator tree produced by lowering
// and consumed by the optimizer and the code generators. The tree is
// strict: every node has exactly one parent and children are never
// shared between operators.
package ir

import (
	"fmt"

	"github.com/saiqldb/saiql/internal/saiql"
)

// Node is implemented by every operator.
type Node interface {
	irNode()
}

// Column is a fully qualified column reference. Lowering resolves every
// reference, so Table is never empty inside the IR.
type Column struct {
	Table string
	Name  string
}

func (c Column) String() string {
	return c.Table + "." + c.Name
}

// AccessKind is the chosen method for reading a table.
type AccessKind int

const (
	AccessFullScan AccessKind = iota
	AccessIndex
)

// AccessPath records the optimizer's scan decision. Rows is the
// estimated output cardinality used for the choice.
type AccessPath struct {
	Kind  AccessKind
	Index string // index name, set when Kind == AccessIndex
	Rows  int64
}

func (a AccessPath) String() string {
	if a.Kind == AccessIndex {
		return fmt.Sprintf("index(%s)", a.Index)
	}
	return "full-scan"
}

// Scan reads a table. Columns is the full resolved column list at
// lowering time; projection pruning narrows it later.
type Scan struct {
	Table   string
	Columns []string
	Access  AccessPath
}

// Filter applies a predicate to its child's rows.
type Filter struct {
	Pred  Pred
	Child Node
}

// Project narrows the child's output to the listed columns.
type Project struct {
	Columns  []Column
	Distinct bool
	Child    Node
}

// Equi is the equality condition of a join.
type Equi struct {
	Left  Column
	Right Column
}

// Join combines two inputs. On is nil only for cross joins.
type Join struct {
	Type  saiql.JoinType
	Left  Node
	Right Node
	On    *Equi
}

// Aggregate computes one aggregate over the child, optionally grouped.
// Col is nil for COUNT(*).
type Aggregate struct {
	Fn      saiql.AggKind
	Col     *Column
	GroupBy []Column
	Child   Node
}

// SortItem is one ordering key.
type SortItem struct {
	Col  Column
	Desc bool
}

// Sort orders the child's rows. Random requests a shuffled order and
// carries no items.
type Sort struct {
	Items  []SortItem
	Random bool
	Child  Node
}

// Limit caps the child's row count.
type Limit struct {
	N     int64
	Child Node
}

// Sink marks the output format requested by the query terminator. It is
// always the root of a lowered read query.
type Sink struct {
	Format saiql.SinkFormat
	Child  Node
}

// Set is one column assignment of an update.
type Set struct {
	Column string
	Value  any
}

// Insert writes literal rows into a table.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// Update rewrites matching rows. Filter is nil for a full-table update.
type Update struct {
	Table  string
	Sets   []Set
	Filter Pred
}

// Delete removes matching rows. Filter is nil for a full-table delete.
type Delete struct {
	Table  string
	Filter Pred
}

func (*Scan) irNode()      {}
func (*Filter) irNode()    {}
func (*Project) irNode()   {}
func (*Join) irNode()      {}
func (*Aggregate) irNode() {}
func (*Sort) irNode()      {}
func (*Limit) irNode()     {}
func (*Sink) irNode()      {}
func (*Insert) irNode()    {}
func (*Update) irNode()    {}
func (*Delete) irNode()    {}
