// Package fetcher downloads remote input tables over HTTP and FTP and streams
// rows out of CSV, XLSX and ZIP containers.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/resilience"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download returns the body of the resource. The caller closes it.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// DownloadToFile writes the resource to path and returns the bytes written.
	DownloadToFile(ctx context.Context, rawURL, path string) (int64, error)
}

// Options configures remote downloads.
type Options struct {
	UserAgent string            `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	RateLimit float64           `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second and host
	Retry     resilience.Policy `yaml:"retry" mapstructure:"retry"`
}

// IsRemote reports whether src is an http, https or ftp URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// New returns the fetcher for the scheme of rawURL.
func New(rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse %s", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPFetcher(opts), nil
	case "ftp":
		return NewFTPFetcher(opts), nil
	}
	return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
}

// Fetch downloads rawURL into dir and returns the local path. The file keeps
// the last element of the URL path as its name.
func Fetch(ctx context.Context, rawURL, dir string, opts Options) (string, error) {
	f, err := New(rawURL, opts)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, localName(rawURL))
	n, err := f.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", rawURL)
	}

	zap.L().Info("downloaded input",
		zap.String("url", rawURL),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

func localName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
