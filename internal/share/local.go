package share

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LocalConfig configures the local directory backend.
type LocalConfig struct {
	Dir string
}

// Local writes files into a directory.
type Local struct {
	dir string
}

// NewLocal creates a Local backend, creating Dir if needed.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Dir == "" {
		return nil, eris.New("share: local requires dir")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "share: create %s", cfg.Dir)
	}
	return &Local{dir: cfg.Dir}, nil
}

// Upload writes body to Dir/name through a temp file and rename.
func (l *Local) Upload(_ context.Context, name, _ string, body []byte) error {
	target := filepath.Join(l.dir, filepath.Base(name))
	tmp, err := os.CreateTemp(l.dir, ".share-*")
	if err != nil {
		return eris.Wrap(err, "local: create temp")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(body); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "local: write")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "local: close")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return eris.Wrapf(err, "local: rename to %s", target)
	}
	zap.L().Debug("local: stored", zap.String("path", target))
	return nil
}
