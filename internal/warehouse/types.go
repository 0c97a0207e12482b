package warehouse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/sells-group/chart-etl/internal/model"
)

// Column type names produced by InferColumnType.
const (
	TypeBigInt    = "BIGINT"
	TypeDouble    = "DOUBLE PRECISION"
	TypeBoolean   = "BOOLEAN"
	TypeVarchar   = "VARCHAR(255)"
	TypeText      = "TEXT"
	TypeTimestamp = "TIMESTAMPTZ"
)

// maxVarchar is the longest string stored as VARCHAR(255).
const maxVarchar = 255

// InferColumnType picks the Postgres type for a column from its non-null
// values. Integers mixed with floats widen to DOUBLE PRECISION; any other
// mix, or a column of only nulls, is TEXT.
func InferColumnType(values []any) string {
	var ints, floats, bools, strs, times, other, longest int
	for _, v := range values {
		switch t := v.(type) {
		case nil:
		case int64, int, int32:
			ints++
		case float64, float32:
			floats++
		case bool:
			bools++
		case string:
			strs++
			longest = max(longest, utf8.RuneCountInString(t))
		case time.Time:
			times++
		default:
			other++
		}
	}

	total := ints + floats + bools + strs + times + other
	switch {
	case total == 0 || other > 0:
		return TypeText
	case ints == total:
		return TypeBigInt
	case ints+floats == total:
		return TypeDouble
	case bools == total:
		return TypeBoolean
	case times == total:
		return TypeTimestamp
	case strs == total:
		if longest > maxVarchar {
			return TypeText
		}
		return TypeVarchar
	default:
		return TypeText
	}
}

// ColumnDef is one column of a created table.
type ColumnDef struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// InferSchema derives column definitions for f. A column named id becomes
// the primary key.
func InferSchema(f model.Frame) []ColumnDef {
	defs := make([]ColumnDef, len(f.Columns))
	values := make([]any, len(f.Rows))
	for i, col := range f.Columns {
		for j, row := range f.Rows {
			values[j] = row[col]
		}
		defs[i] = ColumnDef{Name: col, Type: InferColumnType(values), PrimaryKey: col == model.ColID}
	}
	return defs
}

// CreateTableSQL renders a CREATE TABLE statement for table.
func CreateTableSQL(table string, defs []ColumnDef, ifNotExists bool) string {
	sql := "CREATE TABLE "
	if ifNotExists {
		sql += "IF NOT EXISTS "
	}
	sql += table + " ("
	for i, d := range defs {
		if i > 0 {
			sql += ", "
		}
		sql += fmt.Sprintf("%s %s", pgx.Identifier{d.Name}.Sanitize(), d.Type)
		if d.PrimaryKey {
			sql += " PRIMARY KEY"
		}
	}
	return sql + ")"
}

// copyValue converts a cell to a value pgx can encode for its column type.
func copyValue(v any, colType string) any {
	if v == nil {
		return nil
	}
	switch colType {
	case TypeDouble:
		switch n := v.(type) {
		case int64:
			return float64(n)
		case int:
			return float64(n)
		case int32:
			return float64(n)
		case float32:
			return float64(n)
		}
	case TypeBigInt:
		switch n := v.(type) {
		case int:
			return int64(n)
		case int32:
			return int64(n)
		}
	case TypeText, TypeVarchar:
		if _, ok := v.(string); !ok {
			return model.FormatCell(v)
		}
	}
	return v
}

// CoerceFrame converts text cells to typed values column by column: a
// column whose non-empty values all parse as integers becomes int64, as
// numbers float64, as true/false bool. Other columns are left as text.
// Raw CSV files are loaded through it so seeded tables keep numeric types.
func CoerceFrame(f model.Frame) model.Frame {
	out := model.Frame{Columns: append([]string(nil), f.Columns...), Rows: make([]model.Row, len(f.Rows))}
	for i, row := range f.Rows {
		out.Rows[i] = make(model.Row, len(row))
		for k, v := range row {
			out.Rows[i][k] = v
		}
	}
	for _, col := range f.Columns {
		parse := columnParser(f, col)
		if parse == nil {
			continue
		}
		for _, row := range out.Rows {
			if s, ok := row[col].(string); ok {
				row[col], _ = parse(strings.TrimSpace(s))
			}
		}
	}
	return out
}

type cellParser func(string) (any, bool)

var cellParsers = []cellParser{
	func(s string) (any, bool) {
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	},
	func(s string) (any, bool) {
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil && !math.IsNaN(n)
	},
	func(s string) (any, bool) {
		switch strings.ToLower(s) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false
	},
}

// columnParser returns the first parser accepting every text value of col,
// or nil when the column holds no text or no parser fits.
func columnParser(f model.Frame, col string) cellParser {
	var texts []string
	for _, row := range f.Rows {
		switch v := row[col].(type) {
		case nil:
		case string:
			texts = append(texts, strings.TrimSpace(v))
		default:
			return nil
		}
	}
	if len(texts) == 0 {
		return nil
	}
next:
	for _, p := range cellParsers {
		for _, s := range texts {
			if _, ok := p(s); !ok {
				continue next
			}
		}
		return p
	}
	return nil
}
