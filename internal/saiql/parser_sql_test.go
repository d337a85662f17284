package saiql

import (
	"strings"
	"testing"
)

func mustParseSQL(t *testing.T, input string) Query {
	t.Helper()
	q, err := ParseQuery(input, SQLSubset)
	if err != nil {
		t.Fatalf("ParseQuery(%q) failed: %v", input, err)
	}
	return q
}

func expectSQLError(t *testing.T, input, wantSubstr string) {
	t.Helper()
	_, err := ParseQuery(input, SQLSubset)
	if err == nil {
		t.Fatalf("ParseQuery(%q): expected error containing %q, got nil", input, wantSubstr)
	}
	if !strings.Contains(err.Error(), wantSubstr) {
		t.Fatalf("ParseQuery(%q): expected error containing %q, got %q", input, wantSubstr, err.Error())
	}
}

// --- SELECT ---

func TestSQLSelectStar(t *testing.T) {
	q := mustParseSQL(t, "SELECT * FROM users").(*SelectQuery)
	if !q.Wildcard {
		t.Fatal("expected wildcard")
	}
	if len(q.Tables) != 1 || q.Tables[0].Name != "users" {
		t.Fatalf("expected table users, got %v", q.Tables)
	}
}

func TestSQLSelectColumns(t *testing.T) {
	q := mustParseSQL(t, "select name, email from users").(*SelectQuery)
	if len(q.Columns) != 2 || q.Columns[0].Name != "name" || q.Columns[1].Name != "email" {
		t.Fatalf("expected [name email], got %v", q.Columns)
	}
}

func TestSQLSelectDistinct(t *testing.T) {
	q := mustParseSQL(t, "SELECT DISTINCT city FROM users").(*SelectQuery)
	if !q.Distinct {
		t.Fatal("expected distinct")
	}
}

func TestSQLSelectWhere(t *testing.T) {
	q := mustParseSQL(t, "SELECT * FROM users WHERE age >= 18 AND status = 'active'").(*SelectQuery)
	and, ok := q.Filter.(*BinaryOp)
	if !ok || and.Op != "and" {
		t.Fatalf("expected top-level and, got %+v", q.Filter)
	}
}

func TestSQLSelectOrderLimit(t *testing.T) {
	q := mustParseSQL(t, "SELECT name FROM users ORDER BY name DESC, age LIMIT 5").(*SelectQuery)
	if len(q.OrderBy) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(q.OrderBy))
	}
	if !q.OrderBy[0].Desc || q.OrderBy[1].Desc {
		t.Fatalf("expected [desc asc], got %+v", q.OrderBy)
	}
	if q.Limit == nil || q.Limit.N != 5 {
		t.Fatalf("expected limit 5, got %+v", q.Limit)
	}
}

func TestSQLAggregates(t *testing.T) {
	q := mustParseSQL(t, "SELECT COUNT(*) FROM sales").(*SelectQuery)
	if q.Agg != AggCount || q.AggCol != nil {
		t.Fatalf("expected COUNT(*), got %v %v", q.Agg, q.AggCol)
	}

	q = mustParseSQL(t, "SELECT region, SUM(amount) FROM sales GROUP BY region").(*SelectQuery)
	if q.Agg != AggSum || q.AggCol == nil || q.AggCol.Name != "amount" {
		t.Fatalf("expected SUM(amount), got %v %v", q.Agg, q.AggCol)
	}
	if len(q.GroupBy) != 1 || q.GroupBy[0].Name != "region" {
		t.Fatalf("expected group by region, got %v", q.GroupBy)
	}
}

func TestSQLAggregateErrors(t *testing.T) {
	expectSQLError(t, "SELECT SUM(*) FROM sales", "takes a column")
	expectSQLError(t, "SELECT MEDIAN(x) FROM sales", "unknown function")
	expectSQLError(t, "SELECT COUNT(*), SUM(x) FROM sales", "only one aggregate")
}

func TestSQLJoins(t *testing.T) {
	q := mustParseSQL(t,
		"SELECT * FROM users JOIN orders ON users.id = orders.user_id").(*SelectQuery)
	if len(q.Joins) != 1 || q.Joins[0].Type != JoinInner {
		t.Fatalf("expected one inner join, got %+v", q.Joins)
	}
	on := q.Joins[0].On
	if on == nil || on.Left.Table != "users" || on.Right.Name != "user_id" {
		t.Fatalf("unexpected on: %+v", on)
	}
}

func TestSQLJoinVariants(t *testing.T) {
	tests := []struct {
		clause string
		jt     JoinType
	}{
		{"INNER JOIN b ON a.id = b.a_id", JoinInner},
		{"LEFT JOIN b ON a.id = b.a_id", JoinLeft},
		{"LEFT OUTER JOIN b ON a.id = b.a_id", JoinLeft},
		{"RIGHT JOIN b ON a.id = b.a_id", JoinRight},
		{"FULL OUTER JOIN b ON a.id = b.a_id", JoinFull},
	}
	for _, tt := range tests {
		q := mustParseSQL(t, "SELECT * FROM a "+tt.clause).(*SelectQuery)
		if len(q.Joins) != 1 || q.Joins[0].Type != tt.jt {
			t.Errorf("%q: expected %v, got %+v", tt.clause, tt.jt, q.Joins)
		}
	}
}

func TestSQLCrossJoin(t *testing.T) {
	q := mustParseSQL(t, "SELECT * FROM colors CROSS JOIN sizes").(*SelectQuery)
	if len(q.Joins) != 1 || q.Joins[0].Type != JoinCross || q.Joins[0].On != nil {
		t.Fatalf("unexpected joins: %+v", q.Joins)
	}
}

// --- INSERT ---

func TestSQLInsert(t *testing.T) {
	q := mustParseSQL(t,
		"INSERT INTO users (name, age) VALUES ('alice', 30), ('bob', 25)").(*InsertQuery)
	if q.Table.Name != "users" {
		t.Fatalf("expected table users, got %q", q.Table.Name)
	}
	if len(q.Columns) != 2 || q.Columns[0] != "name" {
		t.Fatalf("expected [name age], got %v", q.Columns)
	}
	if len(q.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(q.Rows))
	}
	lit := q.Rows[1][1].(*Literal)
	if lit.Kind != TokNumber || lit.Value != "25" {
		t.Fatalf("expected number 25, got %v %q", lit.Kind, lit.Value)
	}
}

func TestSQLInsertArityMismatch(t *testing.T) {
	expectSQLError(t, "INSERT INTO users (name, age) VALUES ('alice')",
		"1 values for 2 columns")
}

// --- UPDATE / DELETE ---

func TestSQLUpdate(t *testing.T) {
	q := mustParseSQL(t,
		"UPDATE users SET status = 'inactive', age = 31 WHERE name = 'alice'").(*UpdateQuery)
	if len(q.Sets) != 2 || q.Sets[0].Column != "status" {
		t.Fatalf("unexpected sets: %+v", q.Sets)
	}
	if q.Filter == nil {
		t.Fatal("expected filter")
	}
}

func TestSQLDelete(t *testing.T) {
	q := mustParseSQL(t, "DELETE FROM users WHERE age < 18").(*DeleteQuery)
	if q.Table.Name != "users" || q.Filter == nil {
		t.Fatalf("unexpected delete: %+v", q)
	}
}

func TestSQLDeleteWithoutWhere(t *testing.T) {
	q := mustParseSQL(t, "DELETE FROM sessions").(*DeleteQuery)
	if q.Filter != nil {
		t.Fatal("expected no filter")
	}
}

func TestSQLStatementErrors(t *testing.T) {
	expectSQLError(t, "DROP TABLE users", "expected SELECT, INSERT, UPDATE, or DELETE")
	expectSQLError(t, "SELECT FROM users", "expected identifier")
	expectSQLError(t, "SELECT * FROM users LIMIT -1", "expected number")
}
