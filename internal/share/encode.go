package share

import (
	"bytes"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
)

// Format is the encoding of a shared file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// placeholders fill null cells in shared files: unmatched rows have no
// award year.
var placeholders = map[string]string{model.ColYear: model.NotApplicable}

// ParseFormat parses a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("share: unknown format %q", s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Encode renders f in format.
func Encode(format Format, f model.Frame) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV, "":
		if err := fetcher.WriteCSVFrame(&buf, f, placeholders); err != nil {
			return nil, err
		}
	case FormatXLSX:
		if err := writeXLSX(&buf, f); err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("share: unknown format %q", format)
	}
	return buf.Bytes(), nil
}

func writeXLSX(buf *bytes.Buffer, f model.Frame) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("merged_data")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range f.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range f.Rows {
		row := sheet.AddRow()
		for _, c := range f.Columns {
			setCell(row.AddCell(), r[c], placeholders[c])
		}
	}

	if err := file.Write(buf); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func setCell(cell *xlsx.Cell, v any, placeholder string) {
	switch t := v.(type) {
	case nil:
		cell.SetString(placeholder)
	case int64:
		cell.SetInt64(t)
	case int:
		cell.SetInt(t)
	case float64:
		cell.SetFloat(t)
	case bool:
		cell.SetBool(t)
	case time.Time:
		cell.SetDateTime(t)
	default:
		cell.SetString(model.FormatCell(t))
	}
}
