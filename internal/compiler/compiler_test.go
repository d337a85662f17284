package compiler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/saiqldb/saiql/internal/analyze"
	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/codegen"
	"github.com/saiqldb/saiql/internal/saiql"
)

func testCatalogFile() *catalog.File {
	return &catalog.File{
		Dialect: "postgres",
		Tables: []catalog.Table{
			{Name: "users", Rows: 1000, Columns: []catalog.Column{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
				{Name: "age", Type: "integer"},
			}},
			{Name: "orders", Rows: 100, Columns: []catalog.Column{
				{Name: "id", Type: "integer"},
				{Name: "user_id", Type: "integer"},
				{Name: "total", Type: "numeric(10,2)"},
			}},
		},
		Indexes: []catalog.Index{
			{Name: "users_pkey", Table: "users", Columns: []string{"id"}, Unique: true},
		},
	}
}

func testInput(query string, surface saiql.Surface) Input {
	f := testCatalogFile()
	return Input{
		Query:   query,
		Surface: surface,
		Dialect: "postgres",
		Source:  f.Dialect,
		Schema:  f.Memory(),
		Stats:   f.Stats(),
	}
}

func TestCompileSymbolic(t *testing.T) {
	out, err := Compile(context.Background(), testInput("*5[users]::name|age>=18>>oJ", saiql.Symbolic))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := `SELECT "users"."name" FROM "users" WHERE "users"."age" >= $1 LIMIT 5`
	if out.SQL != want {
		t.Fatalf("unexpected sql: %s", out.SQL)
	}
	if len(out.Params) != 1 || out.Params[0] != int64(18) {
		t.Fatalf("unexpected params: %v", out.Params)
	}
	if out.Output != saiql.SinkJSON {
		t.Fatalf("expected oJ output, got %v", out.Output)
	}
	if out.ID == uuid.Nil {
		t.Fatal("expected a query id")
	}
	if out.Dialect != "postgres" {
		t.Fatalf("expected postgres, got %q", out.Dialect)
	}
}

func TestCompileSQLSurface(t *testing.T) {
	out, err := Compile(context.Background(),
		testInput("SELECT name FROM users WHERE age >= 18 LIMIT 5", saiql.SQLSubset))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(out.SQL, `WHERE "users"."age" >= $1`) {
		t.Fatalf("unexpected sql: %s", out.SQL)
	}
}

// Both surfaces lower into the same tree, so the generated SQL must
// match exactly.
func TestSurfacesConverge(t *testing.T) {
	sym, err := Compile(context.Background(), testInput("*5[users]::name|age>=18", saiql.Symbolic))
	if err != nil {
		t.Fatalf("symbolic: %v", err)
	}
	sql, err := Compile(context.Background(),
		testInput("SELECT name FROM users WHERE age >= 18 LIMIT 5", saiql.SQLSubset))
	if err != nil {
		t.Fatalf("sql: %v", err)
	}
	if sym.SQL != sql.SQL {
		t.Fatalf("surfaces diverge:\n%s\n%s", sym.SQL, sql.SQL)
	}
}

func TestCompileDeterministic(t *testing.T) {
	in := testInput("=J[users+orders]::users.id=orders.user_id|users.age>=18", saiql.Symbolic)
	a, err := Compile(context.Background(), in)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := Compile(context.Background(), in)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if a.SQL != b.SQL {
		t.Fatalf("same input produced different sql:\n%s\n%s", a.SQL, b.SQL)
	}
	if a.ID == b.ID {
		t.Fatal("each compilation gets its own id")
	}
}

func TestCompileExplain(t *testing.T) {
	out, err := Compile(context.Background(),
		testInput("=J[users+orders]::users.id=orders.user_id", saiql.Symbolic))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(out.Explain.JoinOrder) != 2 {
		t.Fatalf("expected 2 tables in join order, got %v", out.Explain.JoinOrder)
	}
	// orders (100 rows) is smaller than users (1000 rows).
	if out.Explain.JoinOrder[0] != "orders" {
		t.Fatalf("expected orders first, got %v", out.Explain.JoinOrder)
	}
	if len(out.Explain.Access) != 2 {
		t.Fatalf("expected 2 access paths, got %v", out.Explain.Access)
	}
}

func TestCompileMissingCollaborators(t *testing.T) {
	in := testInput("*[users]", saiql.Symbolic)
	in.Schema = nil
	if _, err := Compile(context.Background(), in); err == nil {
		t.Fatal("expected error without schema")
	}

	in = testInput("*[users]", saiql.Symbolic)
	in.Stats = nil
	if _, err := Compile(context.Background(), in); err == nil {
		t.Fatal("expected error without stats")
	}
}

func TestCompileUnknownDialect(t *testing.T) {
	in := testInput("*[users]", saiql.Symbolic)
	in.Dialect = "firebird"
	_, err := Compile(context.Background(), in)
	if saiql.CodeOf(err) != saiql.CodeUnsupported {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

type denyAll struct{}

func (denyAll) Inspect(string) analyze.Verdict {
	return analyze.Verdict{Allow: false, Reason: "tautology pattern"}
}

func TestCompileFirewall(t *testing.T) {
	in := testInput("*[users]", saiql.Symbolic)
	in.Options.Firewall = denyAll{}
	_, err := Compile(context.Background(), in)
	if saiql.CodeOf(err) != saiql.CodeRejected {
		t.Fatalf("expected rejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "tautology pattern") {
		t.Fatalf("expected reason in error, got %q", err.Error())
	}
}

func TestCompileOverridePassthrough(t *testing.T) {
	in := testInput("=R[users+orders]::users.id=orders.user_id", saiql.Symbolic)
	in.Dialect = "sqlite"

	if _, err := Compile(context.Background(), in); saiql.CodeOf(err) != saiql.CodeUnsupported {
		t.Fatalf("expected unsupported, got %v", err)
	}

	in.Options.Overrides = map[codegen.Feature]bool{codegen.FeatureJoinRight: true}
	out, err := Compile(context.Background(), in)
	if err != nil {
		t.Fatalf("override should force generation: %v", err)
	}
	var found bool
	for _, w := range out.Warnings {
		if w.Kind == codegen.WarnOverride {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected override warning, got %v", out.Warnings)
	}
}

func TestCompileOptimizeBudget(t *testing.T) {
	in := testInput("=J[users+orders]::users.id=orders.user_id", saiql.Symbolic)
	in.Options.OptimizeBudget = time.Nanosecond

	out, err := Compile(context.Background(), in)
	if err != nil {
		t.Fatalf("an exhausted budget must not fail the compile: %v", err)
	}
	var found bool
	for _, w := range out.Warnings {
		if w.Kind == "optimizer-timeout" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected timeout warning, got %v", out.Warnings)
	}
	if out.SQL == "" {
		t.Fatal("expected sql from the unoptimized tree")
	}
}

func TestCompileDML(t *testing.T) {
	out, err := Compile(context.Background(),
		testInput("INSERT INTO users (name, age) VALUES ('alice', 30)", saiql.SQLSubset))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.HasPrefix(out.SQL, `INSERT INTO "users"`) {
		t.Fatalf("unexpected sql: %s", out.SQL)
	}
	if out.Output != saiql.SinkRows {
		t.Fatalf("dml output defaults to rows, got %v", out.Output)
	}
}
