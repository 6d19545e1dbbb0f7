package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// directExtensions are path suffixes served as plain files rather than
// through a video hosting page.
var directExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
}

// Compile-time check that Router implements Fetcher.
var _ Fetcher = (*Router)(nil)

// Router dispatches a locator to the fetcher for its scheme:
// s3:// objects go to S3, http(s) links to a video file are downloaded
// directly, and any other http(s) page is handed to the page fetcher.
type Router struct {
	page   Fetcher
	direct Fetcher
	s3     Fetcher
	logger *slog.Logger
}

// NewRouter creates a Router. s3 may be nil, in which case s3:// locators
// are rejected with ErrUnsupportedLocator.
func NewRouter(page, direct, s3 Fetcher, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{page: page, direct: direct, s3: s3, logger: logger}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, locator, dest string) error {
	f, kind, err := r.route(locator)
	if err != nil {
		return err
	}

	r.logger.Debug("fetching source",
		slog.String("locator", locator),
		slog.String("fetcher", kind),
	)
	return f.Fetch(ctx, locator, dest)
}

func (r *Router) route(locator string) (Fetcher, string, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnsupportedLocator, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		if r.s3 == nil {
			return nil, "", fmt.Errorf("%w: s3 sources are not configured", ErrUnsupportedLocator)
		}
		return r.s3, "s3", nil
	case "http", "https":
		if u.Host == "" {
			return nil, "", fmt.Errorf("%w: missing host", ErrUnsupportedLocator)
		}
		if directExtensions[strings.ToLower(path.Ext(u.Path))] {
			return r.direct, "http", nil
		}
		return r.page, "yt-dlp", nil
	default:
		return nil, "", fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
	}
}
