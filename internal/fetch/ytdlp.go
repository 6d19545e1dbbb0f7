package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultYTDLPFormat prefers an MP4 video stream, falling back to the best
// single file available.
const DefaultYTDLPFormat = "bestvideo[ext=mp4]/best[ext=mp4]/best"

// Compile-time check that YTDLPFetcher implements Fetcher.
var _ Fetcher = (*YTDLPFetcher)(nil)

// YTDLPFetcher downloads videos from hosting sites with the yt-dlp CLI.
type YTDLPFetcher struct {
	// binPath is the path to the yt-dlp binary. Defaults to "yt-dlp".
	binPath string
	format  string
}

// NewYTDLPFetcher creates a new YTDLPFetcher.
// If binPath is empty, it defaults to "yt-dlp" (found via PATH); an empty
// format selects DefaultYTDLPFormat.
func NewYTDLPFetcher(binPath, format string) *YTDLPFetcher {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if format == "" {
		format = DefaultYTDLPFormat
	}
	return &YTDLPFetcher{binPath: binPath, format: format}
}

// Fetch downloads locator to dest.
func (f *YTDLPFetcher) Fetch(ctx context.Context, locator, dest string) error {
	args := []string{
		"--format", f.format,
		"--output", dest,
		"--no-playlist",
		"--no-part",
		"--no-continue",
		"--quiet",
		"--no-warnings",
		"--", locator,
	}

	if err := f.run(ctx, args); err != nil {
		return err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("yt-dlp produced no file: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyDownload
	}
	return nil
}

// run executes yt-dlp with the given arguments and returns an error
// containing stderr output if the command fails.
func (f *YTDLPFetcher) run(ctx context.Context, args []string) error {
	// #nosec G204 - binPath is set by the application, the locator follows "--"
	cmd := exec.CommandContext(ctx, f.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp cancelled: %w", ctx.Err())
		}
		return &ToolError{
			Tool:   "yt-dlp",
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// ToolError represents a failed external tool run, including its stderr output.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s error: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s error: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
