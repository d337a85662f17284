package runner

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/saiqldb/saiql/internal/saiql"
)

var (
	testCols = []string{"name", "age"}
	testData = [][]any{
		{"alice", int64(30)},
		{"bob", nil},
	}
)

func TestIsRead(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{`SELECT "users"."name" FROM "users"`, true},
		{"  select 1", true},
		{`INSERT INTO "users" ("name") VALUES ($1)`, false},
		{`UPDATE "users" SET "name" = $1`, false},
		{`DELETE FROM "users"`, false},
	}
	for _, tt := range tests {
		if got := isRead(tt.sql); got != tt.want {
			t.Errorf("isRead(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderJSON(&buf, testCols, testData); err != nil {
		t.Fatalf("render: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, buf.String())
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(out))
	}
	if out[0]["name"] != "alice" || out[0]["age"] != float64(30) {
		t.Fatalf("unexpected first row: %v", out[0])
	}
	if v, ok := out[1]["age"]; !ok || v != nil {
		t.Fatalf("expected null age, got %v", out[1])
	}
}

func TestRenderJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderJSON(&buf, testCols, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := renderCSV(&buf, testCols, testData); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "name,age\nalice,30\nbob,NULL\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%q", buf.String())
	}
}

func TestRenderCSVQuotesCommas(t *testing.T) {
	var buf bytes.Buffer
	err := renderCSV(&buf, []string{"name"}, [][]any{{"doe, jane"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `"doe, jane"`) {
		t.Fatalf("expected quoted field, got %q", buf.String())
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := renderTable(&buf, testCols, testData); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator, and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "name") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Fatalf("unexpected separator: %q", lines[1])
	}
	if !strings.Contains(lines[3], "NULL") {
		t.Fatalf("expected NULL in row, got %q", lines[3])
	}
}

func TestRenderRows(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRows(&buf, testCols, testData); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "name\tage\nalice\t30\nbob\tNULL\n"
	if buf.String() != want {
		t.Fatalf("unexpected rows:\n%q", buf.String())
	}
}

func TestDisplay(t *testing.T) {
	if got := display(nil); got != "NULL" {
		t.Fatalf("expected NULL, got %q", got)
	}
	if got := display(int64(7)); got != "7" {
		t.Fatalf("expected 7, got %q", got)
	}
	if got := display("x"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open("oracle", "oracle://localhost")
	if saiql.CodeOf(err) != saiql.CodeUnsupported {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
