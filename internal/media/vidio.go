package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"time"

	vidio "github.com/AlexEidt/Vidio"
)

// waitDelay bounds how long Close waits for ffmpeg's output to drain after
// the process is killed.
const waitDelay = 2 * time.Second

// Compile-time check that VidioDecoder implements Decoder.
var _ Decoder = (*VidioDecoder)(nil)

// VidioDecoder implements Decoder. Vidio probes the file with ffprobe for
// frame rate and size; frames are streamed from an ffmpeg process owned by
// the stream, so its lifetime follows the caller's context and Close.
// Both binaries must be available in PATH.
type VidioDecoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewVidioDecoder creates a new VidioDecoder.
func NewVidioDecoder() *VidioDecoder {
	return &VidioDecoder{ffmpegPath: "ffmpeg"}
}

// Open probes path and starts an ffmpeg process emitting raw RGBA frames.
func (d *VidioDecoder) Open(ctx context.Context, path string) (Stream, error) {
	// NewVideo only runs ffprobe; reading frames through Vidio would install
	// a process-wide signal handler per video.
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}

	w, h := video.Width(), video.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrameSize, w, h)
	}

	args := []string{
		"-nostdin",
		"-loglevel", "error",
		"-i", path,
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.WaitDelay = waitDelay

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Err: err}
	}

	return &ffmpegStream{
		fps:    video.FPS(),
		width:  w,
		height: h,
		cmd:    cmd,
		args:   args,
		stdout: stdout,
		stderr: stderr,
		buf:    make([]byte, w*h*4),
	}, nil
}

// ffmpegStream reads fixed-size RGBA frames from an ffmpeg pipe.
type ffmpegStream struct {
	fps           float64
	width, height int

	cmd    *exec.Cmd
	args   []string
	stdout io.Reader
	stderr *bytes.Buffer
	buf    []byte

	waited  bool
	waitErr error
	ended   bool
	closed  bool
}

func (s *ffmpegStream) FrameRate() float64 {
	return s.fps
}

func (s *ffmpegStream) Size() (int, int) {
	return s.width, s.height
}

// Next returns io.EOF only when ffmpeg closed its output on a frame boundary
// and exited cleanly. A partial frame or a non-zero exit is an error.
func (s *ffmpegStream) Next() (image.Image, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.ended {
		return nil, io.EOF
	}

	n, err := io.ReadFull(s.stdout, s.buf)
	switch {
	case err == nil:
		return &image.RGBA{
			Pix:    s.buf,
			Stride: s.width * 4,
			Rect:   image.Rect(0, 0, s.width, s.height),
		}, nil
	case errors.Is(err, io.EOF):
		if werr := s.wait(); werr != nil {
			return nil, werr
		}
		s.ended = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		short := fmt.Errorf("%w: got %d of %d bytes", ErrShortFrame, n, len(s.buf))
		return nil, errors.Join(short, s.wait())
	default:
		return nil, errors.Join(fmt.Errorf("read frame: %w", err), s.kill())
	}
}

// Close stops ffmpeg if it is still running and reaps it.
func (s *ffmpegStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.waited {
		_ = s.kill()
	}
	return nil
}

func (s *ffmpegStream) kill() error {
	if !s.waited && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.wait()
}

// wait reaps ffmpeg once and reports a failed exit with its stderr.
func (s *ffmpegStream) wait() error {
	if s.waited {
		return s.waitErr
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		s.waitErr = &FFmpegError{
			Args:   s.args,
			Stderr: strings.TrimSpace(s.stderr.String()),
			Err:    err,
		}
	}
	return s.waitErr
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
