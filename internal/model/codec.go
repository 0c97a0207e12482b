package model

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"github.com/rotisserie/eris"
)

// EncodeJSON writes f as a JSON array of objects whose keys follow the
// frame's column order. Stage outputs handed between commands use this
// form.
func EncodeJSON(w io.Writer, f Frame) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('[') //nolint:errcheck
	for i, row := range f.Rows {
		if i > 0 {
			bw.WriteByte(',') //nolint:errcheck
		}
		bw.WriteString("\n{") //nolint:errcheck
		for j, col := range f.Columns {
			if j > 0 {
				bw.WriteByte(',') //nolint:errcheck
			}
			key, err := json.Marshal(col)
			if err != nil {
				return eris.Wrapf(err, "model: encode column %q", col)
			}
			val, err := json.Marshal(jsonCell(row[col]))
			if err != nil {
				return eris.Wrapf(err, "model: encode row %d column %q", i, col)
			}
			bw.Write(key)     //nolint:errcheck
			bw.WriteByte(':') //nolint:errcheck
			bw.Write(val)     //nolint:errcheck
		}
		bw.WriteByte('}') //nolint:errcheck
	}
	bw.WriteString("\n]\n") //nolint:errcheck
	return eris.Wrap(bw.Flush(), "model: flush json")
}

// jsonCell maps cells JSON cannot carry (NaN, infinities) to null.
func jsonCell(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
