package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiqldb/saiql/internal/catalog"
	"github.com/saiqldb/saiql/internal/saiql"
)

func testTables() []catalog.Table {
	return []catalog.Table{
		{Name: "customers", Columns: []catalog.Column{
			{Name: "id", Type: "NUMBER(10)"},
			{Name: "name", Type: "VARCHAR2(100)"},
			{Name: "balance", Type: "NUMBER(10,2)"},
		}},
		{Name: "audit_log", Columns: []catalog.Column{
			{Name: "id", Type: "NUMBER(10)"},
			{Name: "logged_at", Type: "TIMESTAMP WITH TIME ZONE"},
		}},
	}
}

func TestBuild(t *testing.T) {
	plan, err := Build(context.Background(), "oracle", "postgres", testTables())
	require.NoError(t, err)

	assert.Equal(t, "oracle", plan.Source)
	assert.Equal(t, "postgres", plan.Target)
	require.Len(t, plan.Tables, 2)

	// Table order follows the input regardless of goroutine scheduling.
	assert.Equal(t, "customers", plan.Tables[0].Table)
	assert.Equal(t, "audit_log", plan.Tables[1].Table)

	customers := plan.Tables[0]
	require.Len(t, customers.Columns, 3)
	assert.Equal(t, "balance", customers.Columns[2].Column)
	assert.Equal(t, "NUMBER(10,2)", customers.Columns[2].SourceType)
	assert.Equal(t, "NUMERIC(10,2)", customers.Columns[2].TargetType)
	assert.False(t, customers.Columns[2].Lossy)
}

func TestBuildLossy(t *testing.T) {
	// Oracle strings carry the empty-string-as-NULL quirk, and decimals
	// flatten to REAL on sqlite.
	plan, err := Build(context.Background(), "oracle", "sqlite", testTables())
	require.NoError(t, err)

	lossy := plan.Lossy()
	require.NotEmpty(t, lossy)

	byColumn := make(map[string]ColumnMapping, len(lossy))
	for _, m := range lossy {
		byColumn[m.Column] = m
	}
	name, ok := byColumn["name"]
	require.True(t, ok, "VARCHAR2 should be flagged, got %v", lossy)
	assert.Contains(t, name.Reason, "empty string")

	balance, ok := byColumn["balance"]
	require.True(t, ok, "NUMBER(10,2) on sqlite should be flagged, got %v", lossy)
	assert.Contains(t, balance.Reason, "floating point")
	assert.Equal(t, "REAL", balance.TargetType)
}

func TestBuildUnmappableColumnFailsPlan(t *testing.T) {
	tables := []catalog.Table{
		{Name: "shapes", Columns: []catalog.Column{
			{Name: "id", Type: "integer"},
			{Name: "outline", Type: "geometry"},
		}},
	}
	plan, err := Build(context.Background(), "postgres", "mysql", tables)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, saiql.CodeUnsupported, saiql.CodeOf(err))
	assert.Contains(t, err.Error(), "table shapes, column outline")
}

func TestBuildNormalizesDialects(t *testing.T) {
	tables := []catalog.Table{
		{Name: "users", Columns: []catalog.Column{
			{Name: "id", Type: "integer"},
			{Name: "name", Type: "text"},
		}},
	}
	plan, err := Build(context.Background(), "postgresql://localhost/db", "sqlserver", tables)
	require.NoError(t, err)
	assert.Equal(t, "postgres", plan.Source)
	assert.Equal(t, "mssql", plan.Target)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, "oracle", "postgres", testTables())
	require.Error(t, err)
}

func TestBuildDistinctPlanIDs(t *testing.T) {
	a, err := Build(context.Background(), "oracle", "postgres", testTables())
	require.NoError(t, err)
	b, err := Build(context.Background(), "oracle", "postgres", testTables())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuildEmptyPlan(t *testing.T) {
	plan, err := Build(context.Background(), "oracle", "postgres", nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Tables)
	assert.Empty(t, plan.Lossy())
}

func TestLossyKeepsTableOrder(t *testing.T) {
	plan, err := Build(context.Background(), "oracle", "sqlite", testTables())
	require.NoError(t, err)

	var names []string
	for _, m := range plan.Lossy() {
		names = append(names, m.Column)
	}
	// customers columns precede audit_log columns.
	joined := strings.Join(names, ",")
	assert.True(t, strings.Index(joined, "name") < strings.Index(joined, "logged_at"),
		"unexpected order: %v", names)
}
