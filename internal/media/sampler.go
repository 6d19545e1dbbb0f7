package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"time"
)

// Static errors for sampling.
var (
	// ErrInvalidInterval is returned when the sampling interval is not a positive number.
	ErrInvalidInterval = errors.New("invalid interval: must be a positive number of seconds")
	// ErrEmptyResult is returned when a full decode pass produced no frames.
	ErrEmptyResult = errors.New("no frames extracted")
	// ErrSequenceConsumed is returned when a Sequence is iterated a second time.
	ErrSequenceConsumed = errors.New("frame sequence already consumed")
)

// maxStride bounds the stride for intervals far longer than any video.
const maxStride = math.MaxInt32

// Frame is one selected, re-encoded frame.
type Frame struct {
	// Index is the position of the frame in the sampled output, starting at 0.
	Index int
	// SourceIndex is the zero-based native frame number in the video.
	SourceIndex int
	// Timestamp is the frame's presentation time derived from the frame rate.
	Timestamp time.Duration
	// Data holds the encoded image.
	Data []byte
}

// Stats summarizes a decode pass.
type Stats struct {
	FrameRate float64
	Stride    int
	// Decoded counts every native frame read from the stream.
	Decoded int
	// Selected counts frames picked by the stride.
	Selected int
	// Encoded counts selected frames that were emitted.
	Encoded int
	// Skipped counts selected frames dropped because encoding failed.
	Skipped int
}

// Stride returns the number of native frames between two selected frames:
// floor(fps * interval), never less than 1.
func Stride(fps, interval float64) int {
	p := math.Floor(fps * interval)
	if math.IsNaN(p) || p < 1 {
		return 1
	}
	if p >= maxStride {
		return maxStride
	}
	return int(p)
}

// Sampler selects frames from a video at a fixed wall-clock interval.
type Sampler struct {
	decoder Decoder
	encoder Encoder
	logger  *slog.Logger
}

// NewSampler creates a Sampler.
func NewSampler(decoder Decoder, encoder Encoder, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		decoder: decoder,
		encoder: encoder,
		logger:  logger,
	}
}

// Open starts a decode pass over path and returns the lazy frame sequence.
// The caller must Close the sequence; iterating it to the end also closes it.
func (s *Sampler) Open(ctx context.Context, path string, interval float64) (*Sequence, error) {
	if !(interval > 0) || math.IsInf(interval, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInterval, interval)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	stream, err := s.decoder.Open(ctx, path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	fps := stream.FrameRate()
	if !(fps > 0) || math.IsInf(fps, 1) {
		_ = stream.Close()
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %v", ErrNoFrameRate, fps)}
	}

	stride := Stride(fps, interval)
	s.logger.Debug("sampling video",
		slog.String("path", path),
		slog.Float64("fps", fps),
		slog.Float64("interval_sec", interval),
		slog.Int("stride", stride),
	)

	return &Sequence{
		ctx:     ctx,
		path:    path,
		stream:  stream,
		encoder: s.encoder,
		logger:  s.logger,
		stats:   Stats{FrameRate: fps, Stride: stride},
	}, nil
}

// Sample decodes path fully and returns every selected frame in order.
// It returns ErrEmptyResult if no frame could be produced.
func (s *Sampler) Sample(ctx context.Context, path string, interval float64) ([]Frame, Stats, error) {
	seq, err := s.Open(ctx, path, interval)
	if err != nil {
		return nil, Stats{}, err
	}
	defer func() { _ = seq.Close() }()

	var frames []Frame
	for frame, err := range seq.All() {
		if err != nil {
			return nil, seq.Stats(), err
		}
		frames = append(frames, frame)
	}

	stats := seq.Stats()
	if len(frames) == 0 {
		return nil, stats, fmt.Errorf("%w: decoded %d frames, %d failed to encode",
			ErrEmptyResult, stats.Decoded, stats.Skipped)
	}

	s.logger.Info("video sampled",
		slog.String("path", path),
		slog.Int("decoded", stats.Decoded),
		slog.Int("selected", stats.Selected),
		slog.Int("skipped", stats.Skipped),
	)

	return frames, stats, nil
}

// Sequence is a single-pass, time-ordered stream of sampled frames.
// It is not safe for concurrent use.
type Sequence struct {
	ctx     context.Context
	path    string
	stream  Stream
	encoder Encoder
	logger  *slog.Logger

	stats    Stats
	consumed bool
	closed   bool
}

// Stats returns the counters accumulated so far.
func (q *Sequence) Stats() Stats {
	return q.stats
}

// All walks the decoded stream once, yielding every frame whose native index
// is a multiple of the stride. Decode failures and cancellation end the
// iteration with an error. A frame that fails to encode is counted in
// Stats.Skipped and the walk continues. The stream is closed when the
// iteration ends, however it ends.
func (q *Sequence) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		if q.consumed {
			yield(Frame{}, ErrSequenceConsumed)
			return
		}
		q.consumed = true
		defer func() { _ = q.Close() }()

		for counter := 0; ; counter++ {
			if err := q.ctx.Err(); err != nil {
				yield(Frame{}, fmt.Errorf("sampling cancelled: %w", err))
				return
			}

			img, err := q.stream.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// A killed decoder surfaces as a read failure; report the cancellation.
				if cerr := q.ctx.Err(); cerr != nil {
					yield(Frame{}, fmt.Errorf("sampling cancelled: %w", cerr))
					return
				}
				yield(Frame{}, &DecodeError{Path: q.path, Err: err})
				return
			}
			q.stats.Decoded++

			if counter%q.stats.Stride != 0 {
				continue
			}
			q.stats.Selected++

			data, err := q.encoder.Encode(img)
			if err != nil {
				q.stats.Skipped++
				q.logger.Warn("skipping frame that failed to encode",
					slog.String("path", q.path),
					slog.Int("source_index", counter),
					slog.String("error", err.Error()),
				)
				continue
			}

			frame := Frame{
				Index:       q.stats.Encoded,
				SourceIndex: counter,
				Timestamp:   time.Duration(float64(counter) / q.stats.FrameRate * float64(time.Second)),
				Data:        data,
			}
			q.stats.Encoded++

			if !yield(frame, nil) {
				return
			}
		}
	}
}

// Close releases the decoder. It is safe to call more than once.
func (q *Sequence) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	return q.stream.Close()
}
