package analyze

import (
	"strings"
	"testing"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/ir"
	"github.com/saiqldb/saiql/internal/saiql"
)

func testCatalog() *catalog.Memory {
	return catalog.NewMemory(
		catalog.Table{
			Name: "users",
			Columns: []catalog.Column{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
				{Name: "email", Type: "text"},
				{Name: "age", Type: "integer"},
				{Name: "active", Type: "boolean"},
			},
		},
		catalog.Table{
			Name: "orders",
			Columns: []catalog.Column{
				{Name: "id", Type: "integer"},
				{Name: "user_id", Type: "integer"},
				{Name: "total", Type: "numeric(10,2)"},
			},
		},
		catalog.Table{
			Name: "sales",
			Columns: []catalog.Column{
				{Name: "id", Type: "integer"},
				{Name: "user_id", Type: "integer"},
				{Name: "region", Type: "text"},
				{Name: "amount", Type: "numeric(10,2)"},
			},
		},
	)
}

func testBuilder() *Builder {
	return &Builder{
		Catalog:       testCatalog(),
		Firewall:      AllowAll{},
		SourceDialect: "postgres",
	}
}

func build(t *testing.T, input string, surface saiql.Surface) ir.Node {
	t.Helper()
	q, err := saiql.ParseQuery(input, surface)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	node, err := testBuilder().Build(input, q)
	if err != nil {
		t.Fatalf("build %q: %v", input, err)
	}
	return node
}

func expectBuildError(t *testing.T, input string, surface saiql.Surface, wantSubstr string) {
	t.Helper()
	q, err := saiql.ParseQuery(input, surface)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	_, err = testBuilder().Build(input, q)
	if err == nil {
		t.Fatalf("build %q: expected error containing %q, got nil", input, wantSubstr)
	}
	if !strings.Contains(err.Error(), wantSubstr) {
		t.Fatalf("build %q: expected error containing %q, got %q", input, wantSubstr, err.Error())
	}
	if code := saiql.CodeOf(err); code != saiql.CodeSemantic {
		t.Fatalf("build %q: expected semantic code, got %q", input, code)
	}
}

// --- Firewall ---

type countingInspector struct {
	calls int
	allow bool
}

func (c *countingInspector) Inspect(string) Verdict {
	c.calls++
	return Verdict{Allow: c.allow, Reason: "blocked pattern"}
}

func TestFirewallCalledOnce(t *testing.T) {
	insp := &countingInspector{allow: true}
	b := testBuilder()
	b.Firewall = insp

	q, _ := saiql.ParseQuery("*[users]", saiql.Symbolic)
	if _, err := b.Build("*[users]", q); err != nil {
		t.Fatalf("build: %v", err)
	}
	if insp.calls != 1 {
		t.Fatalf("expected 1 firewall call, got %d", insp.calls)
	}
}

func TestFirewallRejects(t *testing.T) {
	b := testBuilder()
	b.Firewall = &countingInspector{allow: false}

	q, _ := saiql.ParseQuery("*[users]", saiql.Symbolic)
	_, err := b.Build("*[users]", q)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if saiql.CodeOf(err) != saiql.CodeRejected {
		t.Fatalf("expected rejected code, got %q", saiql.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "blocked pattern") {
		t.Fatalf("expected reason in error, got %q", err.Error())
	}
}

// --- Resolution ---

func TestWildcardExpansion(t *testing.T) {
	node := build(t, "*[users]", saiql.Symbolic)
	sink, ok := node.(*ir.Sink)
	if !ok {
		t.Fatalf("expected *ir.Sink root, got %T", node)
	}
	proj, ok := sink.Child.(*ir.Project)
	if !ok {
		t.Fatalf("expected *ir.Project, got %T", sink.Child)
	}
	want := []string{"id", "name", "email", "age", "active"}
	if len(proj.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(proj.Columns))
	}
	for i, name := range want {
		if proj.Columns[i].Name != name || proj.Columns[i].Table != "users" {
			t.Errorf("column %d: expected users.%s, got %v", i, name, proj.Columns[i])
		}
	}
}

func TestJoinWildcardExpandsInFromOrder(t *testing.T) {
	node := build(t, "=J[users+orders]::users.id=orders.user_id", saiql.Symbolic)
	proj := node.(*ir.Sink).Child.(*ir.Project)
	if len(proj.Columns) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(proj.Columns))
	}
	if proj.Columns[0].Table != "users" || proj.Columns[5].Table != "orders" {
		t.Fatalf("expected users columns before orders columns, got %v", proj.Columns)
	}
}

func TestJoinConditionPerJoinedTable(t *testing.T) {
	// Each ON pair names the table its join introduces plus an earlier one.
	build(t, "=J[users+orders+sales]::users.id=orders.user_id,sales.user_id=users.id", saiql.Symbolic)
}

func TestJoinConditionWrongTable(t *testing.T) {
	expectBuildError(t, "=L[users+orders+sales]::users.id=sales.id,users.id=orders.user_id",
		saiql.Symbolic, "does not reference joined table")
	expectBuildError(t,
		"SELECT name FROM users JOIN orders ON users.id = sales.id JOIN sales ON sales.user_id = users.id",
		saiql.SQLSubset, "does not reference joined table")
}

func TestJoinConditionForwardReference(t *testing.T) {
	expectBuildError(t, "=J[users+orders+sales]::orders.user_id=sales.user_id,sales.id=users.id",
		saiql.Symbolic, "not yet joined")
}

func TestResolutionErrors(t *testing.T) {
	expectBuildError(t, "*[missing]", saiql.Symbolic, `unknown table "missing"`)
	expectBuildError(t, "*[users]::nickname", saiql.Symbolic, `unknown column "nickname"`)
	expectBuildError(t, "*[users]::orders.id", saiql.Symbolic, `table "orders" is not part of this query`)
	expectBuildError(t, "=J[users+orders]::users.id=orders.user_id|id=1", saiql.Symbolic, "ambiguous column")
	expectBuildError(t, "=J[users+users]::users.id=users.id", saiql.Symbolic, "referenced twice")
}

func TestUnqualifiedColumnResolves(t *testing.T) {
	node := build(t, "*[users]|age>=18", saiql.Symbolic)
	filter := findFilter(t, node)
	cols := ir.PredColumns(filter.Pred)
	if len(cols) != 1 || cols[0].Table != "users" || cols[0].Name != "age" {
		t.Fatalf("expected users.age, got %v", cols)
	}
}

// --- Type checks ---

func TestLiteralTypeChecks(t *testing.T) {
	expectBuildError(t, "*[users]|age='ten'", saiql.Symbolic, "string literal does not match")
	expectBuildError(t, "*[users]|name=5", saiql.Symbolic, "numeric literal does not match")
	expectBuildError(t, "*[users]|name=true", saiql.Symbolic, "boolean literal does not match")

	// Matching classes pass.
	build(t, "*[users]|age=30", saiql.Symbolic)
	build(t, "*[users]|name='alice'", saiql.Symbolic)
	build(t, "*[users]|active=true", saiql.Symbolic)
}

func TestColumnComparisonTypeCheck(t *testing.T) {
	expectBuildError(t, "=J[users+orders]::users.id=orders.user_id|users.name>orders.total",
		saiql.Symbolic, "cannot compare")
	build(t, "=J[users+orders]::users.id=orders.user_id|users.age<orders.total", saiql.Symbolic)
}

func TestAggregateNumericCheck(t *testing.T) {
	expectBuildError(t, "*SUM[users]::name", saiql.Symbolic, "needs a numeric column")
	build(t, "*SUM[orders]::total", saiql.Symbolic)
	build(t, "*COUNT[users]::*", saiql.Symbolic)
}

func TestGroupByWithoutAggregate(t *testing.T) {
	expectBuildError(t, "SELECT name FROM users GROUP BY name", saiql.SQLSubset,
		"GROUP BY without an aggregate")
}

func TestAggregateUngroupedColumn(t *testing.T) {
	expectBuildError(t, "SELECT name, COUNT(*) FROM users", saiql.SQLSubset,
		"must appear in GROUP BY")
	expectBuildError(t, "SELECT region, SUM(amount) FROM sales GROUP BY id", saiql.SQLSubset,
		"must appear in GROUP BY")

	// A grouped select-list column is fine.
	build(t, "SELECT region, SUM(amount) FROM sales GROUP BY region", saiql.SQLSubset)
}

// --- Limit lowering ---

func TestLastLowering(t *testing.T) {
	node := build(t, "*LAST[users]::id", saiql.Symbolic)
	limit, ok := node.(*ir.Sink).Child.(*ir.Limit)
	if !ok || limit.N != 1 {
		t.Fatalf("expected limit 1 under sink, got %T", node.(*ir.Sink).Child)
	}
	sort, ok := limit.Child.(*ir.Sort)
	if !ok {
		t.Fatalf("expected sort under limit, got %T", limit.Child)
	}
	if len(sort.Items) != 1 || !sort.Items[0].Desc || sort.Items[0].Col.Name != "id" {
		t.Fatalf("expected descending sort on id, got %+v", sort.Items)
	}
}

func TestRandomLowering(t *testing.T) {
	node := build(t, "*RANDOM[users]", saiql.Symbolic)
	limit := node.(*ir.Sink).Child.(*ir.Limit)
	sort, ok := limit.Child.(*ir.Sort)
	if !ok || !sort.Random {
		t.Fatalf("expected random sort, got %T", limit.Child)
	}
}

func TestAllLowering(t *testing.T) {
	node := build(t, "*ALL[users]", saiql.Symbolic)
	if _, ok := node.(*ir.Sink).Child.(*ir.Limit); ok {
		t.Fatal("*ALL must not produce a limit")
	}
}

// --- DML ---

func TestInsertLowering(t *testing.T) {
	node := build(t, "INSERT INTO users (name, age) VALUES ('alice', 30)", saiql.SQLSubset)
	ins, ok := node.(*ir.Insert)
	if !ok {
		t.Fatalf("expected *ir.Insert, got %T", node)
	}
	if ins.Table != "users" || len(ins.Rows) != 1 {
		t.Fatalf("unexpected insert: %+v", ins)
	}
	if ins.Rows[0][0] != "alice" || ins.Rows[0][1] != int64(30) {
		t.Fatalf("unexpected values: %v", ins.Rows[0])
	}
}

func TestInsertTypeCheck(t *testing.T) {
	expectBuildError(t, "INSERT INTO users (age) VALUES ('ten')", saiql.SQLSubset,
		"string literal does not match")
	expectBuildError(t, "INSERT INTO users (nickname) VALUES ('x')", saiql.SQLSubset,
		`unknown column "nickname"`)
}

func TestUpdateLowering(t *testing.T) {
	node := build(t, "UPDATE users SET age = 31 WHERE name = 'alice'", saiql.SQLSubset)
	upd, ok := node.(*ir.Update)
	if !ok {
		t.Fatalf("expected *ir.Update, got %T", node)
	}
	if len(upd.Sets) != 1 || upd.Sets[0].Column != "age" || upd.Sets[0].Value != int64(31) {
		t.Fatalf("unexpected sets: %+v", upd.Sets)
	}
	if upd.Filter == nil {
		t.Fatal("expected filter")
	}
}

func TestDeleteLowering(t *testing.T) {
	node := build(t, "DELETE FROM orders WHERE total > 100", saiql.SQLSubset)
	del, ok := node.(*ir.Delete)
	if !ok {
		t.Fatalf("expected *ir.Delete, got %T", node)
	}
	if del.Table != "orders" || del.Filter == nil {
		t.Fatalf("unexpected delete: %+v", del)
	}
}

// --- Helpers ---

func findFilter(t *testing.T, n ir.Node) *ir.Filter {
	t.Helper()
	for n != nil {
		switch v := n.(type) {
		case *ir.Filter:
			return v
		case *ir.Sink:
			n = v.Child
		case *ir.Project:
			n = v.Child
		case *ir.Aggregate:
			n = v.Child
		case *ir.Sort:
			n = v.Child
		case *ir.Limit:
			n = v.Child
		default:
			t.Fatalf("no filter found, stuck at %T", n)
		}
	}
	t.Fatal("no filter found")
	return nil
}
