package ir

// Pred is the sealed predicate tree attached to filters, joins pushed
// into filters, and DML statements.
type Pred interface {
	pred()
}

// Compare is a single comparison between two operands.
type Compare struct {
	Op    string // "=", "!=", "<", "<=", ">", ">="
	Left  Operand
	Right Operand
}

// And holds a conjunction. Optimizer rules split and re-form it, so it
// is n-ary rather than binary.
type And struct {
	Conds []Pred
}

// Or holds a disjunction.
type Or struct {
	Conds []Pred
}

// Not negates a predicate.
type Not struct {
	Pred Pred
}

func (*Compare) pred() {}
func (*And) pred()     {}
func (*Or) pred()      {}
func (*Not) pred()     {}

// Operand is one side of a comparison: a resolved column or a bound
// literal value. Literal values only ever reach SQL as parameters.
type Operand interface {
	operand()
}

// ColOperand references a column.
type ColOperand struct {
	Col Column
}

// ValOperand carries a literal value.
type ValOperand struct {
	V any
}

func (ColOperand) operand() {}
func (ValOperand) operand() {}
