// Package typemap holds the canonical type system and the per-dialect
// mapping tables. Query compilation uses it to type-check literals and
// render column types; the migration planner calls it directly for
// pure type mapping with no SQL involved.
package typemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is a dialect-neutral type. Mapping any source type to a Kind and
// back out avoids an N-by-N dialect conversion table.
type Kind int

const (
	Unknown Kind = iota
	SmallInt
	Integer
	BigInt
	Decimal
	Real
	Double
	Char
	VarChar
	Text
	Bytes
	Date
	Time
	Timestamp
	TimestampTZ
	Boolean
	UUID
	JSON
	JSONB
)

var kindNames = map[Kind]string{
	Unknown:     "UNKNOWN",
	SmallInt:    "SMALLINT",
	Integer:     "INTEGER",
	BigInt:      "BIGINT",
	Decimal:     "DECIMAL",
	Real:        "REAL",
	Double:      "DOUBLE PRECISION",
	Char:        "CHAR",
	VarChar:     "VARCHAR",
	Text:        "TEXT",
	Bytes:       "BYTEA",
	Date:        "DATE",
	Time:        "TIME",
	Timestamp:   "TIMESTAMP",
	TimestampTZ: "TIMESTAMP WITH TIME ZONE",
	Boolean:     "BOOLEAN",
	UUID:        "UUID",
	JSON:        "JSON",
	JSONB:       "JSONB",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsNumeric reports whether values of the kind are numbers.
func (k Kind) IsNumeric() bool {
	switch k {
	case SmallInt, Integer, BigInt, Decimal, Real, Double:
		return true
	}
	return false
}

// IsText reports whether values of the kind are written as strings.
// Temporal and identifier kinds are included: their literals arrive as
// quoted text.
func (k Kind) IsText() bool {
	switch k {
	case Char, VarChar, Text, Date, Time, Timestamp, TimestampTZ, UUID, JSON, JSONB:
		return true
	}
	return false
}

// Canonical is a dialect-neutral type signature. Precision and Scale
// apply to Decimal, Length to Char/VarChar; zero means unset.
type Canonical struct {
	Kind      Kind
	Precision int
	Scale     int
	Length    int
}

func (c Canonical) String() string {
	switch {
	case c.Kind == Decimal && c.Precision > 0 && c.Scale > 0:
		return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale)
	case c.Kind == Decimal && c.Precision > 0:
		return fmt.Sprintf("DECIMAL(%d)", c.Precision)
	case (c.Kind == VarChar || c.Kind == Char) && c.Length > 0:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Length)
	}
	return c.Kind.String()
}

// typeSignature splits "varchar(255)" into its base name and modifiers,
// folding trailing words back into the base so that
// "timestamp(6) with time zone" keeps its full name. A non-numeric
// modifier like "nvarchar(max)" is stripped and leaves the sizes unset.
var typeSignature = regexp.MustCompile(`^([a-zA-Z0-9_]+)\s*(?:\(\s*(\d+|max)\s*(?:,\s*(\d+))?\s*\))?\s*(.*)$`)

// ParseSignature breaks a dialect type string into base name,
// precision, scale, and length.
func ParseSignature(sig string) (base string, precision, scale, length int) {
	sig = strings.TrimSpace(strings.ToLower(sig))
	m := typeSignature.FindStringSubmatch(sig)
	if m == nil {
		return sig, 0, 0, 0
	}
	base = m[1]
	if m[2] != "" {
		precision, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		scale, _ = strconv.Atoi(m[3])
	}
	if trailing := strings.TrimSpace(m[4]); trailing != "" {
		base = base + " " + trailing
	}
	length = precision
	return base, precision, scale, length
}
