// Package share publishes the merged table as a file: encoded as CSV or
// XLSX and uploaded to Google Drive, an FTP directory, or a local directory.
package share

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// Backend names a share destination.
type Backend string

const (
	BackendDrive Backend = "drive"
	BackendFTP   Backend = "ftp"
	BackendLocal Backend = "local"
	BackendNone  Backend = "none"
)

// Uploader stores a named file.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, body []byte) error
}

// Config selects and configures the share backend.
type Config struct {
	Backend Backend
	Format  Format
	Title   string
	Drive   DriveConfig
	FTP     FTPConfig
	Local   LocalConfig
}

// New returns the Uploader for cfg.Backend, or nil for BackendNone.
func New(cfg Config) (Uploader, error) {
	var (
		u   Uploader
		err error
	)
	switch Backend(strings.ToLower(string(cfg.Backend))) {
	case BackendDrive:
		u, err = NewDrive(cfg.Drive)
	case BackendFTP:
		u, err = NewFTP(cfg.FTP)
	case BackendLocal:
		u, err = NewLocal(cfg.Local)
	case BackendNone, "":
		return nil, nil
	default:
		return nil, eris.Errorf("share: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Publish encodes f in format and uploads it under title plus the format's
// extension. It returns the uploaded file name.
func Publish(ctx context.Context, u Uploader, title string, format Format, f model.Frame) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", eris.New("share: empty title")
	}
	if f.Len() == 0 {
		return "", eris.New("share: merged table is empty")
	}

	body, err := Encode(format, f)
	if err != nil {
		return "", err
	}
	name := title
	if ext := format.Extension(); !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}

	zap.L().Info("share: uploading",
		zap.String("name", name),
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Columns)),
		zap.Int("bytes", len(body)),
	)
	if err := u.Upload(ctx, name, format.ContentType(), body); err != nil {
		return "", eris.Wrapf(err, "share: upload %s", name)
	}
	zap.L().Info("share: uploaded", zap.String("name", name))
	return name, nil
}
