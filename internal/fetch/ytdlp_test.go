package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeYTDLP = `#!/bin/sh
out=""
url=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift 2 ;;
    --) url="$2"; shift 2 ;;
    *) shift ;;
  esac
done
case "$url" in
  *unsupported*) echo "ERROR: Unsupported URL: $url" >&2; exit 1 ;;
  *empty*) : > "$out" ;;
  *nofile*) ;;
  *) printf 'video-bytes' > "$out" ;;
esac
`

// writeFakeYTDLP installs a shell script standing in for yt-dlp.
func writeFakeYTDLP(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp is a shell script")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte(fakeYTDLP), 0700)) // #nosec G306 - test executable
	return path
}

func TestNewYTDLPFetcher(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := NewYTDLPFetcher("", "")
		assert.Equal(t, "yt-dlp", f.binPath)
		assert.Equal(t, DefaultYTDLPFormat, f.format)
	})

	t.Run("custom", func(t *testing.T) {
		f := NewYTDLPFetcher("/opt/yt-dlp", "best")
		assert.Equal(t, "/opt/yt-dlp", f.binPath)
		assert.Equal(t, "best", f.format)
	})
}

func TestYTDLPFetcher_Fetch(t *testing.T) {
	f := NewYTDLPFetcher(writeFakeYTDLP(t), "")
	ctx := context.Background()

	t.Run("downloads to destination", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "video.mp4")

		require.NoError(t, f.Fetch(ctx, "https://videos.example.com/watch?v=1", dest))

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "video-bytes", string(data))
	})

	t.Run("tool failure carries stderr", func(t *testing.T) {
		err := f.Fetch(ctx, "https://unsupported.example.com/", filepath.Join(t.TempDir(), "v.mp4"))

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr), "expected ToolError, got %T", err)
		assert.Equal(t, "yt-dlp", toolErr.Tool)
		assert.Contains(t, toolErr.Stderr, "Unsupported URL")
		assert.Contains(t, err.Error(), "Unsupported URL")
	})

	t.Run("empty download", func(t *testing.T) {
		err := f.Fetch(ctx, "https://empty.example.com/", filepath.Join(t.TempDir(), "v.mp4"))
		assert.ErrorIs(t, err, ErrEmptyDownload)
	})

	t.Run("missing output", func(t *testing.T) {
		err := f.Fetch(ctx, "https://nofile.example.com/", filepath.Join(t.TempDir(), "v.mp4"))
		assert.Error(t, err)
	})

	t.Run("missing binary", func(t *testing.T) {
		missing := NewYTDLPFetcher(filepath.Join(t.TempDir(), "nope"), "")
		err := missing.Fetch(ctx, "https://videos.example.com/", filepath.Join(t.TempDir(), "v.mp4"))

		var toolErr *ToolError
		assert.True(t, errors.As(err, &toolErr))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := f.Fetch(cctx, "https://videos.example.com/", filepath.Join(t.TempDir(), "v.mp4"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestToolError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &ToolError{Tool: "yt-dlp", Args: []string{"--", "u"}, Stderr: "ERROR: boom", Err: inner}

	assert.True(t, strings.HasPrefix(err.Error(), "yt-dlp error: exit status 1"))
	assert.Contains(t, err.Error(), "ERROR: boom")
	assert.Equal(t, inner, err.Unwrap())

	bare := &ToolError{Tool: "yt-dlp", Err: inner}
	assert.Equal(t, "yt-dlp error: exit status 1", bare.Error())
}
