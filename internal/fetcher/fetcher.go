// Package fetcher opens dataset files from local disk, HTTP or FTP and
// parses CSV, JSON, XLSX and ZIP payloads into frames.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher opens a dataset location for reading.
type Fetcher interface {
	// Download returns the body at location. The caller closes it.
	Download(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches a location to the fetcher for its scheme. Locations
// without a scheme are local paths.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewRouter returns a Router with default HTTP and FTP fetchers.
func NewRouter() *Router {
	return &Router{
		HTTP: NewHTTPFetcher(HTTPOptions{}),
		FTP:  NewFTPFetcher(FTPOptions{}),
	}
}

// Download opens location with the fetcher matching its scheme.
func (r *Router) Download(ctx context.Context, location string) (io.ReadCloser, error) {
	switch scheme(location) {
	case "http", "https":
		if r.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", location)
		}
		return r.HTTP.Download(ctx, location)
	case "ftp":
		if r.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", location)
		}
		return r.FTP.Download(ctx, location)
	case "", "file":
		path := strings.TrimPrefix(location, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported location %q", location)
	}
}

func scheme(location string) string {
	if !strings.Contains(location, "://") {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return "invalid"
	}
	return strings.ToLower(u.Scheme)
}

// LocalPath reports the filesystem path of a local location.
func LocalPath(location string) (string, bool) {
	switch scheme(location) {
	case "", "file":
		return strings.TrimPrefix(location, "file://"), true
	default:
		return "", false
	}
}
