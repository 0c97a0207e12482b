package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUncoercible is returned when a cell cannot be converted to the type its
// column requires.
type ErrUncoercible struct {
	Want  string
	Value any
}

func (e *ErrUncoercible) Error() string {
	return fmt.Sprintf("cannot coerce %T(%v) to %s", e.Value, e.Value, e.Want)
}

// CellString reads a nullable string cell. Non-string scalars are rendered
// with FormatCell.
func CellString(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	case int64, int, int32, float64, float32, bool, time.Time:
		s := FormatCell(t)
		return &s, nil
	default:
		return nil, &ErrUncoercible{Want: "string", Value: v}
	}
}

// CellInt reads a nullable integer cell. Integral floats and numeric strings
// ("42", "42.0") are accepted; an empty string is null.
func CellInt(v any) (*int64, error) {
	var n int64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int64:
		n = t
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return nil, &ErrUncoercible{Want: "int", Value: v}
		}
		n = int64(t)
	case float32:
		return CellInt(float64(t))
	case bool:
		if t {
			n = 1
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = i
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ErrUncoercible{Want: "int", Value: v}
		}
		return CellInt(f)
	default:
		return nil, &ErrUncoercible{Want: "int", Value: v}
	}
	return &n, nil
}

// CellFloat reads a nullable floating point cell.
func CellFloat(v any) (*float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ErrUncoercible{Want: "float", Value: v}
		}
		f = p
	default:
		return nil, &ErrUncoercible{Want: "float", Value: v}
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

// CellBool reads a nullable boolean cell. Accepts true/false in any case,
// t/f, yes/no and 0/1.
func CellBool(v any) (*bool, error) {
	var b bool
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		b = t
	case int64:
		b = t != 0
	case int:
		b = t != 0
	case float64:
		b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "":
			return nil, nil
		case "true", "t", "yes", "y", "1", "1.0":
			b = true
		case "false", "f", "no", "n", "0", "0.0":
			b = false
		default:
			return nil, &ErrUncoercible{Want: "bool", Value: v}
		}
	default:
		return nil, &ErrUncoercible{Want: "bool", Value: v}
	}
	return &b, nil
}

// FormatCell renders a non-nil cell as text.
func FormatCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func normalizeJSONCell(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
