package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// zipLimit caps the size of an extracted dataset.
const zipLimit = 512 << 20

// ExtractZIPSingle returns the name and contents of the one data file in a
// ZIP archive. Directories and macOS resource forks are ignored.
func ExtractZIPSingle(data []byte) (string, []byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: open archive")
	}

	var files []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		files = append(files, f)
	}
	if len(files) != 1 {
		return "", nil, eris.Errorf("zip: expected exactly 1 file, got %d", len(files))
	}

	rc, err := files[0].Open()
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(rc, zipLimit+1))
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: read entry")
	}
	if len(body) > zipLimit {
		return "", nil, eris.Errorf("zip: entry %q exceeds %d bytes", files[0].Name, zipLimit)
	}
	return files[0].Name, body, nil
}
