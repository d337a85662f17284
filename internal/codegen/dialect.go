package codegen

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/saiqldb/saiql/internal/typemap"
)

// Feature identifies a dialect capability a query may require. The
// same identifiers act as override tokens in the compile options.
type Feature string

const (
	FeatureJoinRight Feature = "join:right"
	FeatureJoinFull  Feature = "join:full"
)

// TypeFeature is the override token for a column type the target
// dialect cannot represent.
func TypeFeature(k typemap.Kind) Feature {
	return Feature("type:" + strings.ToLower(k.String()))
}

// Dialect describes a target's syntax: identifier quoting, parameter
// placeholder style, function spellings, and the features it lacks.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	RandomFn    string // spelling of the random sort function
	UseTop      bool   // TOP n instead of LIMIT n
	Unsupported map[Feature]string

	quoteOpen  string
	quoteClose string
}

// QuoteIdent quotes a bare identifier for this dialect.
func (d *Dialect) QuoteIdent(name string) string {
	escaped := strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose)
	return d.quoteOpen + escaped + d.quoteClose
}

// QuoteColumn quotes a qualified column reference.
func (d *Dialect) QuoteColumn(table, column string) string {
	return d.QuoteIdent(table) + "." + d.QuoteIdent(column)
}

var dialects = map[string]*Dialect{
	"postgres": {
		Name:        "postgres",
		Placeholder: sq.Dollar,
		RandomFn:    "RANDOM()",
		quoteOpen:   `"`,
		quoteClose:  `"`,
	},
	"mysql": {
		Name:        "mysql",
		Placeholder: sq.Question,
		RandomFn:    "RAND()",
		quoteOpen:   "`",
		quoteClose:  "`",
	},
	"sqlite": {
		Name:        "sqlite",
		Placeholder: sq.Question,
		RandomFn:    "RANDOM()",
		quoteOpen:   `"`,
		quoteClose:  `"`,
		Unsupported: map[Feature]string{
			FeatureJoinRight: "SQLite does not support RIGHT JOIN",
			FeatureJoinFull:  "SQLite does not support FULL OUTER JOIN",
		},
	},
	"mssql": {
		Name:        "mssql",
		Placeholder: sq.AtP,
		RandomFn:    "NEWID()",
		UseTop:      true,
		quoteOpen:   "[",
		quoteClose:  "]",
	},
}

// Lookup resolves a dialect name or driver string to its descriptor.
func Lookup(name string) (*Dialect, bool) {
	d, ok := dialects[typemap.Normalize(name)]
	return d, ok
}

// Names lists the supported target dialects.
func Names() []string {
	return []string{"postgres", "mysql", "sqlite", "mssql"}
}
