// Package downloader performs a single retrying HTTP download to a
// destination path, with progress callbacks and optional multihash
// verification integrated into the download stream.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dawkit/dawkit/internal/hashutil"
	"github.com/dawkit/dawkit/internal/httputil"
	"github.com/dawkit/dawkit/internal/log"
)

// ProgressState is the downloader's state machine, reported via Progress callbacks.
type ProgressState int

const (
	Connecting ProgressState = iota
	CreatingDestFile
	Downloading
	Finished
)

// Progress is one callback invocation: a state, and for Downloading a
// fraction in [0,1] (0 when Content-Length is unknown).
type Progress struct {
	State    ProgressState
	Fraction float64
}

// ProgressFunc receives Progress updates during a download.
type ProgressFunc func(Progress)

// Request describes one download.
type Request struct {
	URL              string
	Destination      string
	ExpectedMultihash string // empty means "no verification"
}

// Options configures the Downloader's retry policy.
type Options struct {
	// Retries is the number of retry attempts after the initial try.
	// Default: 3.
	Retries int
	Logger  log.Logger
	Client  *http.Client
}

// Downloader performs single-request downloads with exponential-backoff
// retries on transient failures.
type Downloader struct {
	client  *http.Client
	retries int
	logger  log.Logger
}

// New creates a Downloader. Zero-value Options get sane defaults.
func New(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		client = httputil.NewSecureClient(httputil.DefaultOptions())
	}
	retries := opts.Retries
	if retries == 0 {
		retries = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Downloader{client: client, retries: retries, logger: logger}
}

// Download fetches req.URL to req.Destination, retrying transient failures
// with exponential backoff. If ExpectedMultihash is set and malformed, the
// download fails before any bytes are written.
func (d *Downloader) Download(ctx context.Context, req Request, progress ProgressFunc) error {
	if progress == nil {
		progress = func(Progress) {}
	}

	var verifier *hashutil.Verifier
	if req.ExpectedMultihash != "" {
		v, err := hashutil.TryFromHash(req.ExpectedMultihash)
		if err != nil {
			return fmt.Errorf("download %s: %w", req.URL, err)
		}
		verifier = v
	}

	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			d.logger.Warn("retrying download", "url", req.URL, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := d.attempt(ctx, req, verifier, progress)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
	}
	return fmt.Errorf("download %s failed after %d attempts: %w", req.URL, d.retries+1, lastErr)
}

func (d *Downloader) attempt(ctx context.Context, req Request, verifier *hashutil.Verifier, progress ProgressFunc) error {
	progress(Progress{State: Connecting})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", req.URL, err)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return &transientError{err: fmt.Errorf("connect to %s: %w", req.URL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("download %s: unexpected status %s", req.URL, resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &transientError{err: err}
		}
		return err
	}

	progress(Progress{State: CreatingDestFile})
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("create parent directories for %s: %w", req.Destination, err)
	}
	out, err := os.OpenFile(req.Destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination file %s: %w", req.Destination, err)
	}
	defer out.Close()

	contentLength := resp.ContentLength
	var written int64
	buf := make([]byte, 32*1024)

	if contentLength <= 0 {
		progress(Progress{State: Downloading, Fraction: 0})
	}

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to %s: %w", req.Destination, werr)
			}
			if verifier != nil {
				verifier.Update(buf[:n])
			}
			written += int64(n)
			if contentLength > 0 {
				progress(Progress{State: Downloading, Fraction: float64(written) / float64(contentLength)})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return &transientError{err: fmt.Errorf("read body of %s: %w", req.URL, readErr)}
		}
	}

	if verifier != nil {
		if err := verifier.Verify(); err != nil {
			return fmt.Errorf("download %s: %w", req.URL, err)
		}
	}

	progress(Progress{State: Finished})
	return nil
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	if errors.As(err, &t) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
