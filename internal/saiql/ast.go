package saiql

// Node is the interface all AST nodes implement.
type Node interface {
	node() // marker method
}

// Query is implemented by the four statement forms. Both surface
// syntaxes produce the same query nodes.
type Query interface {
	Node
	query()
}

// Surface selects which grammar the parser applies.
type Surface int

const (
	Symbolic Surface = iota
	SQLSubset
)

func (s Surface) String() string {
	if s == SQLSubset {
		return "sql"
	}
	return "symbolic"
}

// LimitKind distinguishes the limit forms a query prefix may carry.
type LimitKind int

const (
	LimitCount  LimitKind = iota // *N
	LimitAll                     // *ALL (or a bare *)
	LimitFirst                   // *FIRST
	LimitLast                    // *LAST
	LimitRandom                  // *RANDOM, N random rows
)

// LimitClause holds the row-limit part of a query prefix. N is only
// meaningful for LimitCount and LimitRandom.
type LimitClause struct {
	Kind LimitKind
	N    int64
}

// AggKind names the aggregation applied by a query prefix or an
// aggregate function call in the SQL surface.
type AggKind int

const (
	AggNone AggKind = iota
	AggCount
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (a AggKind) String() string {
	switch a {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	}
	return ""
}

// JoinType is the SQL join strategy named by a join symbol or keyword.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	}
	return "INNER"
}

// SinkFormat is the output terminator of a symbolic query.
type SinkFormat int

const (
	SinkRows  SinkFormat = iota // oQ, plain result set
	SinkJSON                    // oJ
	SinkTable                   // oT
	SinkCSV                     // oC
)

func (s SinkFormat) String() string {
	switch s {
	case SinkJSON:
		return "oJ"
	case SinkTable:
		return "oT"
	case SinkCSV:
		return "oC"
	}
	return "oQ"
}

// TableRef names a table in the FROM position.
type TableRef struct {
	Name string
	Pos  int
}

// ColumnRef names a column, optionally qualified by table.
type ColumnRef struct {
	Table string // "" when unqualified
	Name  string
	Pos   int
}

// JoinClause attaches one table to the query with a join strategy.
// On is nil for cross joins.
type JoinClause struct {
	Type  JoinType
	Table TableRef
	On    *OnCond
}

// OnCond is the equality pair of a join condition.
type OnCond struct {
	Left  ColumnRef
	Right ColumnRef
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Col  ColumnRef
	Desc bool
}

// SelectQuery is a read query from either surface. A symbolic query
// like *5[users]::name,email|status='active'>>oQ carries its prefix in
// Limit/Agg, its projection in Columns, and its filter in Filter.
type SelectQuery struct {
	Limit    *LimitClause
	Agg      AggKind
	AggCol   *ColumnRef // operand for SUM/AVG/MIN/MAX; nil for COUNT
	Distinct bool
	Tables   []TableRef
	Joins    []JoinClause
	Columns  []ColumnRef
	Wildcard bool
	Filter   Node // condition expression, nil when absent
	GroupBy  []ColumnRef
	OrderBy  []OrderItem
	Sink     SinkFormat
	Pos      int
}

// InsertQuery is INSERT INTO table (cols) VALUES (...), (...).
type InsertQuery struct {
	Table   TableRef
	Columns []string
	Rows    [][]Node // literal expressions, one slice per VALUES tuple
	Pos     int
}

// Assign is one SET column = value pair.
type Assign struct {
	Column string
	Value  Node
}

// UpdateQuery is UPDATE table SET ... WHERE ...
type UpdateQuery struct {
	Table  TableRef
	Sets   []Assign
	Filter Node
	Pos    int
}

// DeleteQuery is DELETE FROM table WHERE ...
type DeleteQuery struct {
	Table  TableRef
	Filter Node
	Pos    int
}

// BinaryOp is a comparison or logical operation: left op right.
type BinaryOp struct {
	Op    string // "=", "!=", "<", "<=", ">", ">=", "and", "or"
	Left  Node
	Right Node
}

// NotExpr negates a condition.
type NotExpr struct {
	Expr Node
}

// Literal is a string, number, or boolean literal.
type Literal struct {
	Kind  TokenKind // TokString, TokNumber, TokTrue, TokFalse
	Value string
	Pos   int
}

func (*SelectQuery) node() {}
func (*InsertQuery) node() {}
func (*UpdateQuery) node() {}
func (*DeleteQuery) node() {}
func (*TableRef) node()    {}
func (*ColumnRef) node()   {}
func (*BinaryOp) node()    {}
func (*NotExpr) node()     {}
func (*Literal) node()     {}

func (*SelectQuery) query() {}
func (*InsertQuery) query() {}
func (*UpdateQuery) query() {}
func (*DeleteQuery) query() {}
