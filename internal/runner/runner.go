// Package runner executes compiled queries against a live database
// and renders the result in the query's requested output format. It
// is a thin collaborator: compilation never touches it.
package runner

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/saiqldb/saiql/internal/compiler"
	"github.com/saiqldb/saiql/internal/saiql"
)

// drivers maps dialect names to database/sql driver names. Only the
// dialects with a wired driver can execute; the rest compile only.
var drivers = map[string]string{
	"postgres": "pgx",
	"sqlite":   "sqlite3",
}

// Runner executes compiled queries over one database handle.
type Runner struct {
	db *sql.DB
}

// Open connects to the database for a dialect. Dialects without a
// registered driver fail with an unsupported diagnostic.
func Open(dialect, dsn string) (*Runner, error) {
	driver, ok := drivers[dialect]
	if !ok {
		return nil, saiql.Errorf(saiql.CodeUnsupported, "no execution driver for dialect %q", dialect)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	return &Runner{db: db}, nil
}

func (r *Runner) Close() error { return r.db.Close() }

// Run executes the query and writes the rendered result to w. Reads
// render rows in the compiled output format; writes report the
// affected row count.
func (r *Runner) Run(ctx context.Context, q *compiler.CompiledQuery, w io.Writer) error {
	if isRead(q.SQL) {
		return r.runQuery(ctx, q, w)
	}
	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	_, err = fmt.Fprintf(w, "%d row(s) affected\n", n)
	return err
}

func isRead(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

func (r *Runner) runQuery(ctx context.Context, q *compiler.CompiledQuery, w io.Writer) error {
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate: %w", err)
	}

	switch q.Output {
	case saiql.SinkJSON:
		return renderJSON(w, cols, data)
	case saiql.SinkCSV:
		return renderCSV(w, cols, data)
	case saiql.SinkTable:
		return renderTable(w, cols, data)
	default:
		return renderRows(w, cols, data)
	}
}

// --- renderers ---

func renderJSON(w io.Writer, cols []string, data [][]any) error {
	out := make([]map[string]any, 0, len(data))
	for _, row := range data {
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			obj[c] = row[i]
		}
		out = append(out, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderCSV(w io.Writer, cols []string, data [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, row := range data {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = display(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderTable(w io.Writer, cols []string, data [][]any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	seps := make([]string, len(cols))
	for i, c := range cols {
		seps[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))
	for _, row := range data {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = display(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func renderRows(w io.Writer, cols []string, data [][]any) error {
	if _, err := fmt.Fprintln(w, strings.Join(cols, "\t")); err != nil {
		return err
	}
	for _, row := range data {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = display(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func display(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
