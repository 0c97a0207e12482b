package share

import (
	"bytes"
	"context"
	"net"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPConfig configures the FTP backend. Dir is created when absent.
type FTPConfig struct {
	Host     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// FTP stores files on an FTP server.
type FTP struct {
	cfg FTPConfig
}

// NewFTP creates an FTP backend. Port 21 is assumed when Host has none and
// login is anonymous without a user.
func NewFTP(cfg FTPConfig) (*FTP, error) {
	if cfg.Host == "" {
		return nil, eris.New("share: ftp requires host")
	}
	if _, _, err := net.SplitHostPort(cfg.Host); err != nil {
		cfg.Host = net.JoinHostPort(cfg.Host, "21")
	}
	if cfg.User == "" {
		cfg.User, cfg.Password = "anonymous", "anonymous@"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &FTP{cfg: cfg}, nil
}

// Upload stores body as Dir/name, replacing any existing file.
func (f *FTP) Upload(ctx context.Context, name, _ string, body []byte) error {
	conn, err := ftp.Dial(f.cfg.Host, ftp.DialWithTimeout(f.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "ftp: dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(f.cfg.User, f.cfg.Password); err != nil {
		return eris.Wrap(err, "ftp: login")
	}

	target := name
	if f.cfg.Dir != "" {
		if err := conn.ChangeDir(f.cfg.Dir); err != nil {
			if mkErr := conn.MakeDir(f.cfg.Dir); mkErr != nil {
				return eris.Wrapf(mkErr, "ftp: make dir %s", f.cfg.Dir)
			}
		}
		target = path.Join(f.cfg.Dir, name)
	}

	if err := conn.Stor(target, bytes.NewReader(body)); err != nil {
		return eris.Wrapf(err, "ftp: store %s", target)
	}
	zap.L().Debug("ftp: stored", zap.String("host", f.cfg.Host), zap.String("path", target))
	return nil
}
