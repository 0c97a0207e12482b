package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// XLSXOptions selects the worksheet to read.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSXFrame parses a workbook into a frame, using the first row of the
// selected sheet as the header. Trailing empty rows are skipped.
func ReadXLSXFrame(data []byte, opts XLSXOptions) (model.Frame, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return model.Frame{}, eris.Wrap(err, "xlsx: open workbook")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return model.Frame{}, err
	}
	if len(sheet.Rows) == 0 {
		return model.Frame{}, nil
	}

	header := rowToStrings(sheet.Rows[0])
	var records [][]string
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		records = append(records, cells)
	}

	frame, renamed := model.FrameFromStrings(header, records)
	if len(renamed) > 0 {
		zap.L().Warn("xlsx: duplicate columns renamed", zap.Strings("columns", renamed))
	}
	return frame, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
