// Package media decodes video files and samples them into re-encoded still
// images at a fixed wall-clock interval.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Static errors for decoding.
var (
	// ErrNoFrameRate is returned when a stream reports no usable frame rate.
	ErrNoFrameRate = errors.New("video reports no readable frame rate")
	// ErrShortFrame is returned when the decoder yields a truncated frame buffer.
	ErrShortFrame = errors.New("decoded frame buffer is shorter than expected")
	// ErrInvalidFrameSize is returned when a stream reports no usable dimensions.
	ErrInvalidFrameSize = errors.New("video reports no usable frame size")
	// ErrStreamClosed is returned when a closed stream is read.
	ErrStreamClosed = errors.New("stream closed")
)

// Decoder opens video files for a single forward decode pass.
type Decoder interface {
	// Open prepares path for decoding. Decoding stops when ctx is done.
	// The returned Stream must be closed.
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream is a forward-only sequence of decoded frames.
type Stream interface {
	// FrameRate returns the native playback rate in frames per second.
	FrameRate() float64

	// Size returns the frame width and height in pixels.
	Size() (width, height int)

	// Next decodes the next frame. It returns io.EOF after the last frame.
	// The returned image may share memory with the decoder and is only
	// valid until the following call to Next or Close.
	Next() (image.Image, error)

	// Close releases the decoder resources.
	Close() error
}

// DecodeError reports a video that could not be opened or read.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
