package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestVideo renders a test pattern video with a known frame rate and length.
func createTestVideo(t *testing.T, path string, fps, seconds int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=size=64x48:rate=%d:duration=%d", fps, seconds),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestVidioDecoder_Stream(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	createTestVideo(t, path, 10, 2)

	stream, err := NewVidioDecoder().Open(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	assert.InDelta(t, 10.0, stream.FrameRate(), 0.01)
	w, h := stream.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	n := 0
	for {
		img, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 64, img.Bounds().Dx())
		n++
	}
	assert.Equal(t, 20, n)

	require.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestVidioDecoder_OpenMissingFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	_, err := NewVidioDecoder().Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestSampler_Sample_RealVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	createTestVideo(t, path, 10, 3)

	s := newTestSampler(t, NewVidioDecoder(), nil)
	frames, stats, err := s.Sample(context.Background(), path, 1.0)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Stride)
	assert.Equal(t, []int{0, 10, 20}, sourceIndices(frames))
	for _, f := range frames {
		assert.Equal(t, []byte{0xFF, 0xD8}, f.Data[:2], "JPEG SOI marker")
	}
}

func TestSampler_Sample_NotAVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "garbage.mp4")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a video "), 200), 0600))

	s := newTestSampler(t, NewVidioDecoder(), nil)
	_, _, err := s.Sample(context.Background(), path, 1.0)

	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

// fakeVideo describes what the fake ffprobe reports and the fake ffmpeg emits.
type fakeVideo struct {
	width, height int
	fps           string
	frames        int
	// extraBytes are written after the whole frames.
	extraBytes int
	exitCode   int
	stderr     string
	// hang keeps ffmpeg alive after writing its output.
	hang bool
}

// installFakeFFmpeg puts ffprobe and ffmpeg shell scripts first in PATH and
// returns the path of a placeholder video file.
func installFakeFFmpeg(t *testing.T, v fakeVideo) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg is a shell script")
	}
	dir := t.TempDir()

	ffprobeScript := fmt.Sprintf(`#!/bin/sh
echo "stream|index=0|codec_name=h264|codec_type=video|width=%d|height=%d|pix_fmt=yuv420p|r_frame_rate=%s|avg_frame_rate=%s|duration=9.000000|bit_rate=1000|nb_frames=%d"
`, v.width, v.height, v.fps, v.fps, v.frames)

	tail := ""
	if v.stderr != "" {
		tail += fmt.Sprintf("echo %q >&2\n", v.stderr)
	}
	if v.hang {
		tail += "sleep 30\n"
	}
	ffmpeg := fmt.Sprintf(`#!/bin/sh
case " $* " in
  *" -i "*) ;;
  *) echo "ffmpeg version fake"; exit 0 ;;
esac
head -c %d /dev/zero
%sexit %d
`, v.frames*v.width*v.height*4+v.extraBytes, tail, v.exitCode)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffprobe"), []byte(ffprobeScript), 0700)) // #nosec G306 - test executable
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(ffmpeg), 0700))        // #nosec G306 - test executable
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("placeholder"), 0600))
	return clip
}

func TestVidioDecoder_FakeFFmpeg(t *testing.T) {
	clip := installFakeFFmpeg(t, fakeVideo{width: 4, height: 2, fps: "30/1", frames: 270})

	s := newTestSampler(t, NewVidioDecoder(), nil)
	frames, stats, err := s.Sample(context.Background(), clip, 3.0)
	require.NoError(t, err)

	assert.Equal(t, 90, stats.Stride)
	assert.Equal(t, 270, stats.Decoded)
	assert.Equal(t, []int{0, 90, 180}, sourceIndices(frames))
}

func TestVidioDecoder_ConversionsDoNotLeakGoroutines(t *testing.T) {
	clip := installFakeFFmpeg(t, fakeVideo{width: 4, height: 2, fps: "30/1", frames: 270})
	s := newTestSampler(t, NewVidioDecoder(), nil)

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		_, _, err := s.Sample(context.Background(), clip, 3.0)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond, "goroutines before=%d now=%d", before, runtime.NumGoroutine())
}

func TestVidioDecoder_DecoderFailures(t *testing.T) {
	tests := []struct {
		name  string
		video fakeVideo
		check func(t *testing.T, err error)
	}{
		{
			name:  "partial frame then crash",
			video: fakeVideo{width: 4, height: 2, fps: "30/1", frames: 100, extraBytes: 10, exitCode: 1, stderr: "Invalid data found"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrShortFrame)
				var ffErr *FFmpegError
				require.ErrorAs(t, err, &ffErr)
				assert.Contains(t, ffErr.Stderr, "Invalid data found")
			},
		},
		{
			name:  "whole frames then non-zero exit",
			video: fakeVideo{width: 4, height: 2, fps: "30/1", frames: 100, exitCode: 1, stderr: "decode error"},
			check: func(t *testing.T, err error) {
				var ffErr *FFmpegError
				require.ErrorAs(t, err, &ffErr)
				assert.Contains(t, ffErr.Stderr, "decode error")
			},
		},
		{
			name:  "no frame size",
			video: fakeVideo{width: 0, height: 0, fps: "30/1", frames: 0},
			check: func(t *testing.T, err error) {},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clip := installFakeFFmpeg(t, tc.video)
			s := newTestSampler(t, NewVidioDecoder(), nil)

			frames, _, err := s.Sample(context.Background(), clip, 3.0)
			assert.Nil(t, frames)

			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.NotErrorIs(t, err, ErrEmptyResult)
			tc.check(t, err)
		})
	}
}

func TestVidioDecoder_CloseStopsFFmpeg(t *testing.T) {
	clip := installFakeFFmpeg(t, fakeVideo{width: 4, height: 2, fps: "30/1", frames: 10, hang: true})

	stream, err := NewVidioDecoder().Open(context.Background(), clip)
	require.NoError(t, err)

	_, err = stream.Next()
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, stream.Close())
	assert.Less(t, time.Since(start), 10*time.Second)

	_, err = stream.Next()
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.NoError(t, stream.Close())
}

func TestVidioDecoder_ContextCancelStopsDecode(t *testing.T) {
	clip := installFakeFFmpeg(t, fakeVideo{width: 4, height: 2, fps: "30/1", frames: 10, hang: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestSampler(t, NewVidioDecoder(), nil)
	seq, err := s.Open(ctx, clip, 1.0)
	require.NoError(t, err)

	var got error
	n := 0
	for _, err := range seq.All() {
		if err != nil {
			got = err
			break
		}
		n++
		cancel()
	}

	assert.Equal(t, 1, n)
	assert.ErrorIs(t, got, context.Canceled)
}
