// Package fetch resolves source locators to local video files.
// Implementations cover video pages (via yt-dlp), direct HTTP downloads
// and S3 objects; Router picks one per locator.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Static errors for acquisition.
var (
	// ErrUnsupportedLocator is returned when no fetcher handles a locator.
	ErrUnsupportedLocator = errors.New("fetch: unsupported source locator")
	// ErrEmptyDownload is returned when a download produced no bytes.
	ErrEmptyDownload = errors.New("fetch: downloaded file is empty")
	// ErrTooLarge is returned when a download exceeds the configured size cap.
	ErrTooLarge = errors.New("fetch: download exceeds size limit")
	// ErrBadStatus is returned when a remote server answers with a non-2xx status.
	ErrBadStatus = errors.New("fetch: unexpected HTTP status")
)

// Fetcher writes the video named by locator to dest.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dest string) error
}

// copyLimited copies src into a new file at dest, refusing more than limit
// bytes when limit > 0. A partial file is removed on failure.
func copyLimited(ctx context.Context, src io.Reader, dest string, limit int64) (err error) {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600) // #nosec G304 - dest is inside a workspace
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	r := src
	if limit > 0 {
		r = io.LimitReader(src, limit+1)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return fmt.Errorf("write destination file: %w", err)
	}
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if n == 0 {
		return ErrEmptyDownload
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	return c.r.Read(p)
}
