// Package source lists and reads the HTML documents fed to a run.
package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Source enumerates documents and reads their contents. Names returned by
// List are passed back to Read unchanged and identify the document in output.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// Options configures sources that talk to remote servers.
type Options struct {
	FTPTimeout    time.Duration
	FTPRatePerSec float64
	Logger        *zap.Logger
}

// Open picks a Source for path: ftp:// URLs, .zip archives, or a local directory.
func Open(path string, opts Options) (Source, error) {
	if path == "" {
		return nil, eris.New("source: empty path")
	}

	if strings.HasPrefix(strings.ToLower(path), "ftp://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, eris.Wrap(err, "source: parse ftp url")
		}
		return NewFTP(u, FTPOptions{
			Timeout:    opts.FTPTimeout,
			RatePerSec: opts.FTPRatePerSec,
			Logger:     opts.Logger,
		})
	}

	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		return OpenZip(path)
	}

	return NewDir(path)
}
