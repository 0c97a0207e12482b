package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// Format is a dataset file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

// DetectFormat infers the format from the extension of a path or URL.
func DetectFormat(location string) (Format, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		p = u.Path
	}
	switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")); ext {
	case "csv", "txt":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx":
		return FormatXLSX, nil
	case "zip":
		return FormatZIP, nil
	default:
		return "", eris.Errorf("fetcher: unsupported file format %q for %s", ext, location)
	}
}

// ReadFrame downloads location with f and parses it into a frame according
// to its extension. A ZIP archive must hold exactly one CSV, JSON or XLSX
// file.
func ReadFrame(ctx context.Context, f Fetcher, location string) (model.Frame, error) {
	format, err := DetectFormat(location)
	if err != nil {
		return model.Frame{}, err
	}

	body, err := f.Download(ctx, location)
	if err != nil {
		return model.Frame{}, err
	}
	defer body.Close() //nolint:errcheck

	frame, err := parseFrame(ctx, format, location, body)
	if err != nil {
		return model.Frame{}, eris.Wrapf(err, "fetcher: read %s", location)
	}
	zap.L().Debug("fetcher: frame loaded",
		zap.String("location", location),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns)),
	)
	return frame, nil
}

// ParseFrame parses r according to the extension of name.
func ParseFrame(ctx context.Context, name string, r io.Reader) (model.Frame, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return model.Frame{}, err
	}
	return parseFrame(ctx, format, name, r)
}

func parseFrame(ctx context.Context, format Format, name string, r io.Reader) (model.Frame, error) {
	switch format {
	case FormatCSV:
		return ReadCSVFrame(ctx, r)
	case FormatJSON:
		return ReadJSONFrame(ctx, r)
	case FormatXLSX:
		data, err := io.ReadAll(r)
		if err != nil {
			return model.Frame{}, eris.Wrap(err, "xlsx: read body")
		}
		return ReadXLSXFrame(data, XLSXOptions{})
	case FormatZIP:
		data, err := io.ReadAll(r)
		if err != nil {
			return model.Frame{}, eris.Wrap(err, "zip: read body")
		}
		entry, contents, err := ExtractZIPSingle(data)
		if err != nil {
			return model.Frame{}, err
		}
		inner, err := DetectFormat(entry)
		if err != nil {
			return model.Frame{}, err
		}
		if inner == FormatZIP {
			return model.Frame{}, eris.Errorf("zip: nested archive %q in %s", entry, name)
		}
		return parseFrame(ctx, inner, entry, bytes.NewReader(contents))
	default:
		return model.Frame{}, eris.Errorf("fetcher: unsupported format %q", format)
	}
}
