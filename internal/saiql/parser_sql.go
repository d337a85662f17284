package saiql

import "strconv"

// The SQL-subset surface accepts SELECT, INSERT, UPDATE, and DELETE
// with standard clauses and lowers into the same AST as the symbolic
// grammar. Statements never nest and there are no subqueries.

func (p *parser) parseStatement() (Query, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokSelect:
		return p.parseSelect()
	case TokInsert:
		return p.parseInsert()
	case TokUpdate:
		return p.parseUpdate()
	case TokDelete:
		return p.parseDelete()
	default:
		return nil, p.errorf(tok, "expected SELECT, INSERT, UPDATE, or DELETE, got %s", tok.Kind)
	}
}

// parseSelect: SELECT [DISTINCT] list FROM table { join } [WHERE] [GROUP BY] [ORDER BY] [LIMIT]
func (p *parser) parseSelect() (Query, error) {
	start, err := p.expect(TokSelect)
	if err != nil {
		return nil, err
	}
	q := &SelectQuery{Pos: start.Pos}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokDistinct {
		p.advance()
		q.Distinct = true
	}

	if err := p.parseSelectList(q); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokFrom); err != nil {
		return nil, err
	}
	base, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	q.Tables = []TableRef{{Name: base.Lit, Pos: base.Pos}}

	for {
		join, ok, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		q.Tables = append(q.Tables, join.Table)
		q.Joins = append(q.Joins, join)
	}

	tok, err = p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokWhere {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		q.Filter = cond
	}

	tok, err = p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokGroup {
		p.advance()
		if _, err := p.expect(TokBy); err != nil {
			return nil, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		q.GroupBy = cols

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
	}

	if tok.Kind == TokOrder {
		p.advance()
		if _, err := p.expect(TokBy); err != nil {
			return nil, err
		}
		items, err := p.parseOrderItems()
		if err != nil {
			return nil, err
		}
		q.OrderBy = items

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
	}

	if tok.Kind == TokLimit {
		p.advance()
		num, err := p.expect(TokNumber)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(num.Lit, 10, 64)
		if err != nil || n < 0 {
			return nil, p.errorf(num, "LIMIT must be a non-negative integer, got %q", num.Lit)
		}
		q.Limit = &LimitClause{Kind: LimitCount, N: n}
	}

	return q, nil
}

// parseSelectList: '*' | item { ',' item } where an item is a column
// reference or a single aggregate call like COUNT(*) or SUM(amount).
func (p *parser) parseSelectList(q *SelectQuery) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokStar {
		p.advance()
		q.Wildcard = true
		return nil
	}

	for {
		if err := p.parseSelectItem(q); err != nil {
			return err
		}
		tok, err = p.peek()
		if err != nil {
			return err
		}
		if tok.Kind != TokComma {
			return nil
		}
		p.advance()
	}
}

func (p *parser) parseSelectItem(q *SelectQuery) error {
	tok, err := p.expect(TokIdent)
	if err != nil {
		return err
	}

	next, err := p.peek()
	if err != nil {
		return err
	}

	// Aggregate call: COUNT(...), SUM(...), ...
	if next.Kind == TokLParen {
		agg := aggKindOf(tok.Lit)
		if agg == AggNone {
			return p.errorf(tok, "unknown function %q", tok.Lit)
		}
		if q.Agg != AggNone {
			return p.errorf(tok, "only one aggregate per query")
		}
		p.advance() // consume (

		inner, err := p.peek()
		if err != nil {
			return err
		}
		if inner.Kind == TokStar {
			if agg != AggCount {
				return p.errorf(inner, "%s takes a column, not '*'", agg)
			}
			p.advance()
		} else {
			col, err := p.parseColumnRef()
			if err != nil {
				return err
			}
			q.AggCol = &col
		}
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		q.Agg = agg
		return nil
	}

	// Plain column, possibly qualified.
	col := ColumnRef{Name: tok.Lit, Pos: tok.Pos}
	if next.Kind == TokDot {
		p.advance()
		name, err := p.expect(TokIdent)
		if err != nil {
			return err
		}
		col = ColumnRef{Table: tok.Lit, Name: name.Lit, Pos: tok.Pos}
	}
	q.Columns = append(q.Columns, col)
	return nil
}

// parseJoinClause recognizes [INNER|LEFT|RIGHT|FULL [OUTER]|CROSS] JOIN.
// Returns ok=false when the next tokens do not start a join.
func (p *parser) parseJoinClause() (JoinClause, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return JoinClause{}, false, err
	}

	jt := JoinInner
	switch tok.Kind {
	case TokJoin:
	case TokInner:
		p.advance()
	case TokLeft:
		p.advance()
		jt = JoinLeft
		p.skipOuter()
	case TokRight:
		p.advance()
		jt = JoinRight
		p.skipOuter()
	case TokFull:
		p.advance()
		jt = JoinFull
		p.skipOuter()
	case TokCross:
		p.advance()
		jt = JoinCross
	default:
		return JoinClause{}, false, nil
	}

	if _, err := p.expect(TokJoin); err != nil {
		return JoinClause{}, false, err
	}
	table, err := p.expect(TokIdent)
	if err != nil {
		return JoinClause{}, false, err
	}
	join := JoinClause{Type: jt, Table: TableRef{Name: table.Lit, Pos: table.Pos}}

	if jt == JoinCross {
		return join, true, nil
	}

	if _, err := p.expect(TokOn); err != nil {
		return JoinClause{}, false, err
	}
	left, err := p.parseColumnRef()
	if err != nil {
		return JoinClause{}, false, err
	}
	if _, err := p.expect(TokEq); err != nil {
		return JoinClause{}, false, err
	}
	right, err := p.parseColumnRef()
	if err != nil {
		return JoinClause{}, false, err
	}
	join.On = &OnCond{Left: left, Right: right}
	return join, true, nil
}

func (p *parser) skipOuter() {
	tok, err := p.peek()
	if err == nil && tok.Kind == TokOuter {
		p.advance()
	}
}

func (p *parser) parseColumnList() ([]ColumnRef, error) {
	var cols []ColumnRef
	for {
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			return cols, nil
		}
		p.advance()
	}
}

func (p *parser) parseOrderItems() ([]OrderItem, error) {
	var items []OrderItem
	for {
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Col: col}

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokAsc:
			p.advance()
		case TokDesc:
			p.advance()
			item.Desc = true
		}
		items = append(items, item)

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			return items, nil
		}
		p.advance()
	}
}

// parseInsert: INSERT INTO table '(' cols ')' VALUES tuple { ',' tuple }
func (p *parser) parseInsert() (Query, error) {
	start, err := p.expect(TokInsert)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokInto); err != nil {
		return nil, err
	}
	table, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}

	q := &InsertQuery{Table: TableRef{Name: table.Lit, Pos: table.Pos}, Pos: start.Pos}

	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		q.Columns = append(q.Columns, col.Lit)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokValues); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueTuple(len(q.Columns))
		if err != nil {
			return nil, err
		}
		q.Rows = append(q.Rows, row)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}
	return q, nil
}

func (p *parser) parseValueTuple(want int) ([]Node, error) {
	open, err := p.expect(TokLParen)
	if err != nil {
		return nil, err
	}
	var row []Node
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		row = append(row, lit)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	if len(row) != want {
		return nil, p.errorf(open, "VALUES tuple has %d values for %d columns", len(row), want)
	}
	return row, nil
}

func (p *parser) parseLiteral() (Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokString, TokNumber:
		p.advance()
		return &Literal{Kind: tok.Kind, Value: tok.Lit, Pos: tok.Pos}, nil
	case TokTrue, TokFalse:
		p.advance()
		return &Literal{Kind: tok.Kind, Value: tok.Lit, Pos: tok.Pos}, nil
	case TokMinus:
		p.advance()
		num, err := p.expect(TokNumber)
		if err != nil {
			return nil, err
		}
		return &Literal{Kind: TokNumber, Value: "-" + num.Lit, Pos: tok.Pos}, nil
	default:
		return nil, p.errorf(tok, "expected literal value, got %s", tok.Kind)
	}
}

// parseUpdate: UPDATE table SET col '=' literal { ',' ... } [WHERE cond]
func (p *parser) parseUpdate() (Query, error) {
	start, err := p.expect(TokUpdate)
	if err != nil {
		return nil, err
	}
	table, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	q := &UpdateQuery{Table: TableRef{Name: table.Lit, Pos: table.Pos}, Pos: start.Pos}

	if _, err := p.expect(TokSet); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEq); err != nil {
			return nil, err
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		q.Sets = append(q.Sets, Assign{Column: col.Lit, Value: val})

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokComma {
			break
		}
		p.advance()
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokWhere {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		q.Filter = cond
	}
	return q, nil
}

// parseDelete: DELETE FROM table [WHERE cond]
func (p *parser) parseDelete() (Query, error) {
	start, err := p.expect(TokDelete)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokFrom); err != nil {
		return nil, err
	}
	table, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	q := &DeleteQuery{Table: TableRef{Name: table.Lit, Pos: table.Pos}, Pos: start.Pos}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokWhere {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		q.Filter = cond
	}
	return q, nil
}
