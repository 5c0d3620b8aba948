// Package downloader fetches matched resources and streams them to disk.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgnsrekt/resgrab/internal/storage"
)

// Options configures a Downloader.
type Options struct {
	// UserAgent is sent with every GET when non-empty.
	UserAgent string

	// FailOnHTTPError turns non-2xx responses into failures. When false the
	// response body is written as the resource, whatever the status.
	FailOnHTTPError bool
}

// Result describes a completed download.
type Result struct {
	StatusCode int
	Bytes      int64
}

// Downloader performs single-attempt fetches. It holds no per-download state,
// so any number of Fetch calls may run concurrently.
type Downloader struct {
	client *http.Client
	opts   Options
}

// New creates a Downloader. A nil client uses a client without a timeout.
func New(client *http.Client, opts Options) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	return &Downloader{client: client, opts: opts}
}

// Fetch ensures the destination directory exists, GETs sourceURL and streams
// the body into destinationPath. destinationPath only ever holds a complete
// body; a failed transfer leaves it as it was.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, destinationPath string) (Result, error) {
	var res Result

	if err := storage.EnsureDir(filepath.Dir(destinationPath)); err != nil {
		return res, newError(CodeDirectory, "create destination directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return res, newError(CodeTransport, "build request", err)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return res, newError(CodeTransport, "request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	res.StatusCode = resp.StatusCode

	if d.opts.FailOnHTTPError && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return res, newError(CodeHTTPStatus, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	n, err := storage.WriteResource(destinationPath, resp.Body)
	res.Bytes = n
	if err != nil {
		if errors.Is(err, storage.ErrSource) {
			return res, newError(CodeTransport, "read response body", err)
		}
		return res, newError(CodeWrite, "write destination file", err)
	}
	return res, nil
}
