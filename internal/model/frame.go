package model

import (
	"fmt"
	"strings"
)

// Row maps a column name to a cell. Cells hold nil, string, int64, float64
// or bool.
type Row map[string]any

// Frame is an ordered table of loosely typed cells as handed over by an
// extraction collaborator (CSV reader, SQL query, JSON decoder). Frames are
// treated as immutable: every method returns a new Frame.
type Frame struct {
	Columns []string
	Rows    []Row
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns ...string) Frame {
	return Frame{Columns: append([]string(nil), columns...)}
}

// FrameFromStrings builds a frame from a header and string records. Empty
// fields become nil. Duplicate header names are disambiguated with _1, _2
// suffixes; the renamed columns are returned so callers can warn about them.
func FrameFromStrings(header []string, records [][]string) (Frame, []string) {
	cols, renamed := DisambiguateColumns(header)
	f := Frame{Columns: cols, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := make(Row, len(cols))
		for i, col := range cols {
			if i >= len(rec) || rec[i] == "" {
				row[col] = nil
				continue
			}
			row[col] = rec[i]
		}
		f.Rows = append(f.Rows, row)
	}
	return f, renamed
}

// FrameFromRecords builds a frame from decoded JSON objects. Column order is
// the order in which keys are first seen, sorted within each object.
func FrameFromRecords(records []map[string]any) Frame {
	var cols []string
	seen := make(map[string]bool)
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		for _, k := range sortedKeys(rec) {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = normalizeJSONCell(v)
		}
		rows = append(rows, row)
	}
	return Frame{Columns: cols, Rows: rows}
}

// DisambiguateColumns renames repeated column names with a numeric suffix
// (first occurrence keeps its name) and returns the new names.
func DisambiguateColumns(header []string) (cols []string, renamed []string) {
	cols = make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		n := counts[h]
		counts[h] = n + 1
		if n == 0 {
			cols[i] = h
			continue
		}
		cols[i] = fmt.Sprintf("%s_%d", h, n)
		renamed = append(renamed, cols[i])
	}
	return cols, renamed
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// Has reports whether the frame carries the named column.
func (f Frame) Has(col string) bool {
	for _, c := range f.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Missing returns the columns in want that the frame does not carry.
func (f Frame) Missing(want ...string) []string {
	var out []string
	for _, w := range want {
		if !f.Has(w) {
			out = append(out, w)
		}
	}
	return out
}

// Drop returns a frame without the named columns. Absent names are ignored.
func (f Frame) Drop(cols ...string) Frame {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	return f.selectColumns(func(c string) bool { return !drop[c] })
}

// DropArtifacts removes columns produced by the source file format rather
// than the data: empty header names and exported "Unnamed: N" index
// columns.
func (f Frame) DropArtifacts() Frame {
	return f.selectColumns(func(c string) bool { return !IsArtifactColumn(c) })
}

// IsArtifactColumn reports whether a column name is a file-format artifact.
func IsArtifactColumn(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.HasPrefix(n, "Unnamed:")
}

// Rename returns a frame with columns renamed by mapping. Unmapped columns
// keep their names.
func (f Frame) Rename(mapping map[string]string) Frame {
	out := Frame{Columns: make([]string, len(f.Columns)), Rows: make([]Row, len(f.Rows))}
	for i, c := range f.Columns {
		if n, ok := mapping[c]; ok {
			out.Columns[i] = n
		} else {
			out.Columns[i] = c
		}
	}
	for i, r := range f.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			if n, ok := mapping[k]; ok {
				k = n
			}
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// Strings returns the frame rendered as string records in column order. Nil
// cells render as the placeholder for their column, or "" when none is set.
func (f Frame) Strings(placeholders map[string]string) [][]string {
	out := make([][]string, 0, len(f.Rows))
	for _, r := range f.Rows {
		rec := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			v := r[c]
			if v == nil {
				rec[i] = placeholders[c]
				continue
			}
			rec[i] = FormatCell(v)
		}
		out = append(out, rec)
	}
	return out
}

func (f Frame) selectColumns(keep func(string) bool) Frame {
	var cols []string
	for _, c := range f.Columns {
		if keep(c) {
			cols = append(cols, c)
		}
	}
	rows := make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		rows[i] = nr
	}
	return Frame{Columns: cols, Rows: rows}
}

// Rower renders a record as a frame row.
type Rower interface {
	Row() Row
}

// FrameOf renders records as a frame with the given column order.
func FrameOf[T Rower](columns []string, records []T) Frame {
	f := NewFrame(columns...)
	f.Rows = make([]Row, 0, len(records))
	for _, r := range records {
		f.Rows = append(f.Rows, r.Row())
	}
	return f
}
