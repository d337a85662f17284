package typemap

import (
	"fmt"
	"strings"

	"github.com/saiqldb/saiql/internal/saiql"
)

// extract marks a precision/scale/length that is read from the source
// type signature rather than fixed by the rule.
const extract = -1

type rule struct {
	kind      Kind
	precision int // extract, 0 (unset), or a fixed value
	scale     int
}

// sourceRules maps a dialect's declared types onto canonical kinds.
// Lookup tries the full signature first (tinyint(1) is a MySQL
// boolean), then the parsed base name.
var sourceRules = map[string]map[string]rule{
	"postgres": {
		"smallint":                    {kind: SmallInt},
		"integer":                     {kind: Integer},
		"int":                         {kind: Integer},
		"bigint":                      {kind: BigInt},
		"numeric":                     {kind: Decimal, precision: extract, scale: extract},
		"decimal":                     {kind: Decimal, precision: extract, scale: extract},
		"real":                        {kind: Real},
		"double precision":            {kind: Double},
		"char":                        {kind: Char, precision: extract},
		"character":                   {kind: Char, precision: extract},
		"varchar":                     {kind: VarChar, precision: extract},
		"character varying":           {kind: VarChar, precision: extract},
		"text":                        {kind: Text},
		"bytea":                       {kind: Bytes},
		"boolean":                     {kind: Boolean},
		"date":                        {kind: Date},
		"time":                        {kind: Time},
		"timestamp":                   {kind: Timestamp},
		"timestamp without time zone": {kind: Timestamp},
		"timestamp with time zone":    {kind: TimestampTZ},
		"timestamptz":                 {kind: TimestampTZ},
		"uuid":                        {kind: UUID},
		"json":                        {kind: JSON},
		"jsonb":                       {kind: JSONB},
	},
	"mysql": {
		"tinyint":    {kind: SmallInt},
		"tinyint(1)": {kind: Boolean},
		"smallint":   {kind: SmallInt},
		"int":        {kind: Integer},
		"integer":    {kind: Integer},
		"bigint":     {kind: BigInt},
		"decimal":    {kind: Decimal, precision: extract, scale: extract},
		"numeric":    {kind: Decimal, precision: extract, scale: extract},
		"float":      {kind: Real},
		"double":     {kind: Double},
		"char":       {kind: Char, precision: extract},
		"varchar":    {kind: VarChar, precision: extract},
		"text":       {kind: Text},
		"longtext":   {kind: Text},
		"blob":       {kind: Bytes},
		"longblob":   {kind: Bytes},
		"binary":     {kind: Bytes},
		"varbinary":  {kind: Bytes},
		"date":       {kind: Date},
		"time":       {kind: Time},
		"datetime":   {kind: Timestamp},
		"timestamp":  {kind: TimestampTZ},
		"json":       {kind: JSON},
	},
	"sqlite": {
		"integer":   {kind: Integer},
		"real":      {kind: Double},
		"text":      {kind: Text},
		"blob":      {kind: Bytes},
		"boolean":   {kind: Boolean},
		"date":      {kind: Date},
		"datetime":  {kind: Timestamp},
		"timestamp": {kind: Timestamp},
	},
	"oracle": {
		"number":                         {kind: Decimal, precision: extract, scale: extract},
		"float":                          {kind: Double},
		"binary_float":                   {kind: Real},
		"binary_double":                  {kind: Double},
		"varchar2":                       {kind: VarChar, precision: extract},
		"nvarchar2":                      {kind: VarChar, precision: extract},
		"char":                           {kind: Char, precision: extract},
		"nchar":                          {kind: Char, precision: extract},
		"clob":                           {kind: Text},
		"nclob":                          {kind: Text},
		"long":                           {kind: Text},
		"blob":                           {kind: Bytes},
		"raw":                            {kind: Bytes},
		"long raw":                       {kind: Bytes},
		"date":                           {kind: Timestamp},
		"timestamp":                      {kind: Timestamp},
		"timestamp with time zone":       {kind: TimestampTZ},
		"timestamp with local time zone": {kind: TimestampTZ},
	},
	"mssql": {
		"tinyint":          {kind: SmallInt},
		"smallint":         {kind: SmallInt},
		"int":              {kind: Integer},
		"bigint":           {kind: BigInt},
		"bit":              {kind: Boolean},
		"decimal":          {kind: Decimal, precision: extract, scale: extract},
		"numeric":          {kind: Decimal, precision: extract, scale: extract},
		"money":            {kind: Decimal, precision: 19, scale: 4},
		"smallmoney":       {kind: Decimal, precision: 10, scale: 4},
		"float":            {kind: Double},
		"real":             {kind: Real},
		"date":             {kind: Date},
		"time":             {kind: Time},
		"datetime":         {kind: Timestamp},
		"datetime2":        {kind: Timestamp},
		"datetimeoffset":   {kind: TimestampTZ},
		"char":             {kind: Char, precision: extract},
		"nchar":            {kind: Char, precision: extract},
		"varchar":          {kind: VarChar, precision: extract},
		"nvarchar":         {kind: VarChar, precision: extract},
		"text":             {kind: Text},
		"ntext":            {kind: Text},
		"binary":           {kind: Bytes},
		"varbinary":        {kind: Bytes},
		"image":            {kind: Bytes},
		"uniqueidentifier": {kind: UUID},
		"xml":              {kind: Text},
	},
	"duckdb": {
		"integer":   {kind: Integer},
		"bigint":    {kind: BigInt},
		"varchar":   {kind: VarChar, precision: extract},
		"double":    {kind: Double},
		"boolean":   {kind: Boolean},
		"timestamp": {kind: Timestamp},
	},
	"hana": {
		"boolean":      {kind: Boolean},
		"tinyint":      {kind: SmallInt},
		"smallint":     {kind: SmallInt},
		"integer":      {kind: Integer},
		"bigint":       {kind: BigInt},
		"real":         {kind: Real},
		"double":       {kind: Double},
		"char":         {kind: Char, precision: extract},
		"nchar":        {kind: Char, precision: extract},
		"varchar":      {kind: VarChar, precision: extract},
		"nvarchar":     {kind: VarChar, precision: extract},
		"clob":         {kind: Text},
		"nclob":        {kind: Text},
		"date":         {kind: Date},
		"time":         {kind: Time},
		"timestamp":    {kind: Timestamp},
		"seconddate":   {kind: Timestamp},
		"binary":       {kind: Bytes},
		"varbinary":    {kind: Bytes},
		"blob":         {kind: Bytes},
		"decimal":      {kind: Decimal, precision: extract, scale: extract},
		"smalldecimal": {kind: Decimal, precision: 16},
		"shorttext":    {kind: VarChar, precision: extract},
	},
}

// targetTypes renders canonical kinds into a target dialect. A kind
// absent from a dialect's table has no representation there.
var targetTypes = map[string]map[Kind]string{
	"postgres": {
		SmallInt:    "SMALLINT",
		Integer:     "INTEGER",
		BigInt:      "BIGINT",
		Decimal:     "NUMERIC",
		Real:        "REAL",
		Double:      "DOUBLE PRECISION",
		VarChar:     "VARCHAR",
		Text:        "TEXT",
		Char:        "CHAR",
		Bytes:       "BYTEA",
		Boolean:     "BOOLEAN",
		Date:        "DATE",
		Time:        "TIME",
		Timestamp:   "TIMESTAMP",
		TimestampTZ: "TIMESTAMP WITH TIME ZONE",
		UUID:        "UUID",
		JSON:        "JSON",
		JSONB:       "JSONB",
	},
	"mysql": {
		SmallInt:    "SMALLINT",
		Integer:     "INT",
		BigInt:      "BIGINT",
		Decimal:     "DECIMAL",
		Real:        "FLOAT",
		Double:      "DOUBLE",
		VarChar:     "VARCHAR",
		Text:        "TEXT",
		Char:        "CHAR",
		Bytes:       "LONGBLOB",
		Boolean:     "TINYINT(1)",
		Date:        "DATE",
		Time:        "TIME",
		Timestamp:   "DATETIME",
		TimestampTZ: "TIMESTAMP",
		UUID:        "CHAR(36)",
		JSON:        "JSON",
		JSONB:       "JSON",
	},
	"sqlite": {
		SmallInt:    "INTEGER",
		Integer:     "INTEGER",
		BigInt:      "INTEGER",
		Decimal:     "REAL",
		Real:        "REAL",
		Double:      "REAL",
		VarChar:     "TEXT",
		Text:        "TEXT",
		Char:        "TEXT",
		Bytes:       "BLOB",
		Boolean:     "INTEGER",
		Date:        "TEXT",
		Time:        "TEXT",
		Timestamp:   "TEXT",
		TimestampTZ: "TEXT",
		UUID:        "TEXT",
		JSON:        "TEXT",
		JSONB:       "TEXT",
	},
	"mssql": {
		SmallInt:    "SMALLINT",
		Integer:     "INT",
		BigInt:      "BIGINT",
		Decimal:     "DECIMAL",
		Real:        "REAL",
		Double:      "FLOAT",
		VarChar:     "NVARCHAR",
		Text:        "NVARCHAR(MAX)",
		Char:        "NCHAR",
		Bytes:       "VARBINARY(MAX)",
		Boolean:     "BIT",
		Date:        "DATE",
		Time:        "TIME",
		Timestamp:   "DATETIME2",
		TimestampTZ: "DATETIMEOFFSET",
		UUID:        "UNIQUEIDENTIFIER",
		JSON:        "NVARCHAR(MAX)",
		JSONB:       "NVARCHAR(MAX)",
	},
}

// Normalize folds a dialect name or driver string onto the registry
// key, e.g. "postgresql://" and "postgres" both become "postgres".
func Normalize(dialect string) string {
	d := strings.ToLower(strings.TrimSpace(dialect))
	for _, known := range []string{"postgres", "mysql", "sqlite", "oracle", "mssql", "hana", "duckdb"} {
		if strings.Contains(d, known) {
			return known
		}
	}
	if strings.Contains(d, "sqlserver") {
		return "mssql"
	}
	return d
}

// Parse maps a source dialect type signature onto its canonical type.
// An unrecognized signature comes back as Unknown.
func Parse(sourceDialect, signature string) Canonical {
	rules, ok := sourceRules[Normalize(sourceDialect)]
	if !ok {
		return Canonical{Kind: Unknown}
	}

	sig := strings.ToLower(strings.TrimSpace(signature))
	base, precision, scale, length := ParseSignature(sig)

	r, ok := rules[sig]
	if !ok {
		r, ok = rules[base]
	}
	if !ok {
		return Canonical{Kind: Unknown}
	}

	c := Canonical{Kind: r.kind}
	switch r.precision {
	case extract:
		c.Precision = precision
	case 0:
	default:
		c.Precision = r.precision
	}
	switch r.scale {
	case extract:
		c.Scale = scale
	case 0:
	default:
		c.Scale = r.scale
	}
	if r.kind == Char || r.kind == VarChar {
		c.Length = c.Precision
		if c.Length == 0 {
			c.Length = length
		}
		c.Precision = 0
	}
	return c
}

// Render produces the target dialect's type signature for a canonical
// type. ok is false when the dialect has no representation for it.
func Render(targetDialect string, c Canonical) (string, bool) {
	table, ok := targetTypes[Normalize(targetDialect)]
	if !ok {
		return "", false
	}
	base, ok := table[c.Kind]
	if !ok {
		return "", false
	}

	// Precision and scale only survive when the target base is itself a
	// parameterizable decimal; sqlite stores decimals as a plain REAL.
	switch {
	case c.Kind == Decimal && c.Precision > 0 && Parse(targetDialect, base).Kind == Decimal:
		if c.Scale > 0 {
			return fmt.Sprintf("%s(%d,%d)", base, c.Precision, c.Scale), true
		}
		return fmt.Sprintf("%s(%d)", base, c.Precision), true
	case (c.Kind == VarChar || c.Kind == Char) && c.Length > 0 && !strings.Contains(base, "("):
		return fmt.Sprintf("%s(%d)", base, c.Length), true
	}
	return base, true
}

// Lossy compares two canonical signatures and reports whether the
// conversion from source to target loses precision, scale, length, or
// semantics. The reason is non-empty exactly when lossy is true.
func Lossy(source, target Canonical) (bool, string) {
	if source.Kind == Decimal && (target.Kind == Real || target.Kind == Double) {
		return true, fmt.Sprintf("precision loss: %s stored as floating point %s", source, target)
	}
	if source.Kind == TimestampTZ && target.Kind != TimestampTZ {
		return true, fmt.Sprintf("timezone loss: %s becomes %s, offsets are normalized away", source, target)
	}
	if source.Kind == Decimal && target.Kind == Decimal {
		if target.Precision > 0 && source.Precision > target.Precision {
			return true, fmt.Sprintf("precision shrink: %s does not fit %s", source, target)
		}
		if target.Scale > 0 && source.Scale > target.Scale {
			return true, fmt.Sprintf("scale shrink: %s rounds into %s", source, target)
		}
	}
	if (source.Kind == VarChar || source.Kind == Char) && (target.Kind == VarChar || target.Kind == Char) {
		if target.Length > 0 && source.Length > target.Length {
			return true, fmt.Sprintf("length shrink: %s truncates into %s", source, target)
		}
	}
	return false, ""
}

// Mapping is one source-to-target type rule. Lossy implies a non-empty
// Reason.
type Mapping struct {
	SourceDialect string
	SourceType    string
	Canonical     Canonical
	TargetDialect string
	TargetType    string
	Lossy         bool
	Reason        string
}

// MapType resolves a source type signature through the canonical type
// system into a target dialect. This is the migration entry point; it
// never emits SQL.
func MapType(sourceDialect, sourceType, targetDialect string) (Mapping, error) {
	c := Parse(sourceDialect, sourceType)
	if c.Kind == Unknown {
		return Mapping{}, saiql.Errorf(saiql.CodeUnsupported,
			"no canonical mapping for %s type %q", Normalize(sourceDialect), sourceType)
	}

	targetType, ok := Render(targetDialect, c)
	if !ok {
		return Mapping{}, saiql.Errorf(saiql.CodeUnsupported,
			"%s cannot represent %s (%s type %q)", Normalize(targetDialect), c, Normalize(sourceDialect), sourceType)
	}

	m := Mapping{
		SourceDialect: Normalize(sourceDialect),
		SourceType:    sourceType,
		Canonical:     c,
		TargetDialect: Normalize(targetDialect),
		TargetType:    targetType,
	}

	m.Lossy, m.Reason = Lossy(c, Parse(targetDialect, targetType))
	if !m.Lossy {
		m.Lossy, m.Reason = semanticLoss(m)
	}
	return m, nil
}

// semanticLoss covers conversions whose shape survives but whose
// behavior changes between engines.
func semanticLoss(m Mapping) (bool, string) {
	if m.Canonical.Kind == TimestampTZ && m.TargetDialect == "mysql" {
		return true, "semantic change: MySQL TIMESTAMP normalizes to UTC and drops the original offset"
	}
	if m.SourceDialect == "oracle" && m.TargetDialect != "oracle" {
		switch m.Canonical.Kind {
		case Char, VarChar, Text:
			return true, fmt.Sprintf(
				"semantic change: Oracle %s treats the empty string as NULL, %s distinguishes them",
				m.SourceType, m.TargetDialect)
		}
	}
	return false, ""
}
