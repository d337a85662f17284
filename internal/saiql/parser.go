package saiql

import (
	"strconv"
	"strings"
)

// ParseQuery parses a query string under the given surface grammar into
// an AST. The first violation aborts with a syntax diagnostic; there is
// no error recovery.
func ParseQuery(input string, surface Surface) (Query, error) {
	p := &parser{lexer: NewLexer(input)}

	var (
		q   Query
		err error
	)
	if surface == SQLSubset {
		q, err = p.parseStatement()
	} else {
		q, err = p.parseSymbolic()
	}
	if err != nil {
		return nil, err
	}

	// Ensure we consumed everything.
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokEOF {
		return nil, p.errorf(tok, "unexpected %s, expected end of query", tok.Kind)
	}
	return q, nil
}

type parser struct {
	lexer *Lexer
}

// --- Symbolic surface ---

// parseSymbolic: prefix '[' tables ']' [ '::' section ] [ '|' condition ] [ '>>' sink ]
func (p *parser) parseSymbolic() (Query, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	q := &SelectQuery{Pos: tok.Pos}

	switch tok.Kind {
	case TokStar:
		p.advance()
		if err := p.parsePrefix(q); err != nil {
			return nil, err
		}
	case TokJoinSym:
		p.advance()
		return p.parseJoinQuery(q, tok.Lit)
	default:
		return nil, p.errorf(tok, "expected query prefix '*' or join symbol, got %s", tok.Kind)
	}

	tables, err := p.parseTableList()
	if err != nil {
		return nil, err
	}
	if len(tables) != 1 {
		return nil, p.errorf(tok, "a '*' query reads exactly one table, got %d; use a join symbol to combine tables", len(tables))
	}
	q.Tables = tables

	if err := p.parseProjection(q); err != nil {
		return nil, err
	}
	if err := p.parseFilterAndSink(q); err != nil {
		return nil, err
	}
	return q, nil
}

// parsePrefix consumes what follows '*': a numeric or named limit, an
// aggregation name, or nothing when '[' comes next.
func (p *parser) parsePrefix(q *SelectQuery) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}

	switch tok.Kind {
	case TokNumber:
		p.advance()
		n, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil || n < 0 {
			return p.errorf(tok, "limit must be a non-negative integer, got %q", tok.Lit)
		}
		q.Limit = &LimitClause{Kind: LimitCount, N: n}
		return nil

	case TokDistinct:
		p.advance()
		q.Distinct = true
		return nil

	case TokIdent:
		switch strings.ToUpper(tok.Lit) {
		case "ALL":
			p.advance()
			q.Limit = &LimitClause{Kind: LimitAll}
		case "FIRST":
			p.advance()
			q.Limit = &LimitClause{Kind: LimitFirst, N: 1}
		case "LAST":
			p.advance()
			q.Limit = &LimitClause{Kind: LimitLast, N: 1}
		case "RANDOM":
			p.advance()
			q.Limit = &LimitClause{Kind: LimitRandom, N: 1}
		case "COUNT":
			p.advance()
			q.Agg = AggCount
		case "SUM", "AVG", "MIN", "MAX":
			p.advance()
			q.Agg = aggKindOf(tok.Lit)
		default:
			return p.errorf(tok, "unknown query prefix %q", tok.Lit)
		}
		return nil

	case TokLBracket:
		// A bare '*' reads all rows.
		return nil

	default:
		return p.errorf(tok, "expected limit, aggregation, or '[' after '*', got %s", tok.Kind)
	}
}

// parseJoinQuery: joinsym '[' a '+' b... ']' [ '::' onPairs ] [ '|' cond ] [ '>>' sink ]
func (p *parser) parseJoinQuery(q *SelectQuery, sym string) (Query, error) {
	jt := joinTypeOf(sym)

	tables, err := p.parseTableList()
	if err != nil {
		return nil, err
	}
	if len(tables) < 2 {
		return nil, Errorf(CodeSyntax, "join %s needs at least two tables, got %d", sym, len(tables))
	}
	q.Tables = tables
	q.Wildcard = true

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokScope {
		p.advance()
		if jt == JoinCross {
			// A cross join has no ON condition; the section is the projection.
			if err := p.parseProjectionBody(q); err != nil {
				return nil, err
			}
		} else {
			pairs, err := p.parseOnPairs()
			if err != nil {
				return nil, err
			}
			if len(pairs) != len(tables)-1 {
				return nil, Errorf(CodeSyntax, "join over %d tables needs %d conditions, got %d",
					len(tables), len(tables)-1, len(pairs))
			}
			for i, on := range pairs {
				q.Joins = append(q.Joins, JoinClause{Type: jt, Table: tables[i+1], On: on})
			}
		}
	} else if jt != JoinCross {
		return nil, p.errorf(tok, "join %s needs a '::' condition section", sym)
	}

	if jt == JoinCross {
		for _, t := range q.Tables[1:] {
			q.Joins = append(q.Joins, JoinClause{Type: JoinCross, Table: t})
		}
	}

	if err := p.parseFilterAndSink(q); err != nil {
		return nil, err
	}
	return q, nil
}

// parseTableList: '[' ident { '+' ident } ']'
func (p *parser) parseTableList() ([]TableRef, error) {
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	var tables []TableRef
	for {
		tok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		tables = append(tables, TableRef{Name: tok.Lit, Pos: tok.Pos})

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokPlus {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return tables, nil
}

// parseProjection consumes an optional '::' section.
func (p *parser) parseProjection(q *SelectQuery) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind != TokScope {
		q.Wildcard = true
		return nil
	}
	p.advance()
	return p.parseProjectionBody(q)
}

// parseProjectionBody: '*' | column { ',' column }
func (p *parser) parseProjectionBody(q *SelectQuery) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokStar {
		p.advance()
		if q.Agg != AggNone && q.Agg != AggCount {
			return p.errorf(tok, "%s takes a column, not '*'", q.Agg)
		}
		q.Wildcard = true
		return nil
	}

	var cols []ColumnRef
	for {
		col, err := p.parseColumnRef()
		if err != nil {
			return err
		}
		cols = append(cols, col)

		tok, err = p.peek()
		if err != nil {
			return err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}

	// SUM/AVG/MIN/MAX take exactly one operand column.
	if q.Agg != AggNone && q.Agg != AggCount {
		if len(cols) != 1 {
			return Errorf(CodeSyntax, "%s takes exactly one column, got %d", q.Agg, len(cols))
		}
		q.AggCol = &cols[0]
		return nil
	}
	if q.Agg == AggCount {
		if len(cols) == 1 {
			q.AggCol = &cols[0]
			return nil
		}
		return Errorf(CodeSyntax, "COUNT takes '*' or one column, got %d columns", len(cols))
	}

	q.Columns = cols
	return nil
}

// parseOnPairs: qualified '=' qualified { ',' qualified '=' qualified }
func (p *parser) parseOnPairs() ([]*OnCond, error) {
	var pairs []*OnCond
	for {
		left, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEq); err != nil {
			return nil, err
		}
		right, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, &OnCond{Left: left, Right: right})

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}
	return pairs, nil
}

// parseFilterAndSink consumes the optional '|' condition and '>>' sink.
func (p *parser) parseFilterAndSink(q *SelectQuery) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokPipe {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return err
		}
		q.Filter = cond

		tok, err = p.peek()
		if err != nil {
			return err
		}
	}

	if tok.Kind == TokSink {
		p.advance()
		sink, err := p.parseSink()
		if err != nil {
			return err
		}
		q.Sink = sink
	}
	return nil
}

// parseSink: 'oQ' | 'oJ' | 'oT' | 'oC'
func (p *parser) parseSink() (SinkFormat, error) {
	tok, err := p.expect(TokIdent)
	if err != nil {
		return SinkRows, err
	}
	switch tok.Lit {
	case "oQ":
		return SinkRows, nil
	case "oJ":
		return SinkJSON, nil
	case "oT":
		return SinkTable, nil
	case "oC":
		return SinkCSV, nil
	}
	return SinkRows, p.errorf(tok, "unknown output format %q, expected oQ, oJ, oT, or oC", tok.Lit)
}

// --- Conditions (shared by both surfaces) ---

// parseCondition: andExpr { OR andExpr }
func (p *parser) parseCondition() (Node, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokOr {
			break
		}
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

// parseAndExpr: notExpr { AND notExpr }
func (p *parser) parseAndExpr() (Node, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokAnd {
			break
		}
		p.advance()
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

// parseNotExpr: [ NOT ] comparison | '(' condition ')'
func (p *parser) parseNotExpr() (Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Kind == TokNot {
		p.advance()
		inner, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}

	if tok.Kind == TokLParen {
		p.advance()
		inner, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}

	return p.parseComparison()
}

// parseComparison: operand op operand
func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(tok.Kind)
	if !ok {
		return nil, p.errorf(tok, "expected comparison operator, got %s", tok.Kind)
	}
	p.advance()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &BinaryOp{Op: op, Left: left, Right: right}, nil
}

// parseOperand: columnRef | literal
func (p *parser) parseOperand() (Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokIdent:
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		return &col, nil
	case TokString, TokNumber:
		p.advance()
		return &Literal{Kind: tok.Kind, Value: tok.Lit, Pos: tok.Pos}, nil
	case TokTrue, TokFalse:
		p.advance()
		return &Literal{Kind: tok.Kind, Value: strings.ToLower(tok.Lit), Pos: tok.Pos}, nil
	case TokMinus:
		p.advance()
		num, err := p.expect(TokNumber)
		if err != nil {
			return nil, err
		}
		return &Literal{Kind: TokNumber, Value: "-" + num.Lit, Pos: tok.Pos}, nil
	default:
		return nil, p.errorf(tok, "expected column or literal, got %s", tok.Kind)
	}
}

// parseColumnRef: ident [ '.' ident ]
func (p *parser) parseColumnRef() (ColumnRef, error) {
	tok, err := p.expect(TokIdent)
	if err != nil {
		return ColumnRef{}, err
	}

	next, err := p.peek()
	if err != nil {
		return ColumnRef{}, err
	}
	if next.Kind != TokDot {
		return ColumnRef{Name: tok.Lit, Pos: tok.Pos}, nil
	}
	p.advance()
	name, err := p.expect(TokIdent)
	if err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Table: tok.Lit, Name: name.Lit, Pos: tok.Pos}, nil
}

// --- Helpers ---

func (p *parser) peek() (Token, error) {
	return p.lexer.Peek()
}

func (p *parser) advance() {
	p.lexer.Next() //nolint:errcheck
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok, err := p.lexer.Next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, p.errorf(tok, "expected %s, got %s", kind, tok.Kind)
	}
	return tok, nil
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return ErrorAt(CodeSyntax, tok.Pos, tok.Line, tok.Col, format, args...)
}

func comparisonOp(k TokenKind) (string, bool) {
	switch k {
	case TokEq:
		return "=", true
	case TokNeq:
		return "!=", true
	case TokLt:
		return "<", true
	case TokLte:
		return "<=", true
	case TokGt:
		return ">", true
	case TokGte:
		return ">=", true
	}
	return "", false
}

func aggKindOf(name string) AggKind {
	switch strings.ToUpper(name) {
	case "COUNT":
		return AggCount
	case "SUM":
		return AggSum
	case "AVG":
		return AggAvg
	case "MIN":
		return AggMin
	case "MAX":
		return AggMax
	}
	return AggNone
}

func joinTypeOf(sym string) JoinType {
	switch sym {
	case "=L":
		return JoinLeft
	case "=R":
		return JoinRight
	case "=F":
		return JoinFull
	case "=C":
		return JoinCross
	}
	return JoinInner
}
