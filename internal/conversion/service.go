package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/video2pdf-api/internal/media"
	"github.com/maauso/video2pdf-api/internal/workspace"
)

const (
	// DocumentFilename is the suggested download name of a result.
	DocumentFilename = "frames.pdf"
	// DocumentContentType is the media type of a result.
	DocumentContentType = "application/pdf"
)

// Fetcher places the video named by locator at dest.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dest string) error
}

// FrameSampler decodes a video and returns its sampled frames in order.
type FrameSampler interface {
	Sample(ctx context.Context, path string, interval float64) ([]media.Frame, media.Stats, error)
}

// Assembler combines ordered images into one document.
type Assembler interface {
	Assemble(ctx context.Context, images [][]byte) ([]byte, error)
}

// Document is a completed conversion.
type Document struct {
	Data        []byte
	Filename    string
	ContentType string
	// Pages is the number of pages in the document.
	Pages int
	// SkippedFrames counts sampled frames left out because they failed to encode.
	SkippedFrames int
}

// Service orchestrates a conversion. It holds no per-request state, so one
// Service may serve concurrent requests; each gets its own workspace.
type Service struct {
	workspaces *workspace.Manager
	fetcher    Fetcher
	sampler    FrameSampler
	assembler  Assembler
	logger     *slog.Logger
}

// NewService creates a new Service.
func NewService(
	workspaces *workspace.Manager,
	fetcher Fetcher,
	sampler FrameSampler,
	assembler Assembler,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		workspaces: workspaces,
		fetcher:    fetcher,
		sampler:    sampler,
		assembler:  assembler,
		logger:     logger,
	}
}

// Convert runs the pipeline for req. On failure the returned error is always
// a *Error; on success the Document is complete. The workspace is removed
// before Convert returns, whatever the outcome.
//
// The workflow:
//  1. Validate the request
//  2. Acquire a workspace
//  3. Fetch the source video into it
//  4. Sample frames
//  5. Assemble the document
//  6. Release the workspace
func (s *Service) Convert(ctx context.Context, req Request) (*Document, error) {
	if verr := req.Validate(); verr != nil {
		return nil, newError(KindValidation, "invalid request", verr)
	}

	start := time.Now()
	var doc *Document

	err := s.workspaces.Run(ctx, func(ws *workspace.Workspace) error {
		logger := s.logger.With(slog.String("workspace_id", ws.ID))
		logger.Info("conversion started",
			slog.String("source", req.SourceLocator),
			slog.Float64("interval_sec", req.IntervalSeconds),
		)

		result, convErr := s.convertIn(ctx, logger, ws, req)
		if convErr != nil {
			logger.Warn("conversion failed",
				slog.String("kind", string(convErr.Kind)),
				slog.String("error", convErr.Error()),
				slog.Duration("duration", time.Since(start)),
			)
			return convErr
		}

		logger.Info("conversion completed",
			slog.Int("pages", result.Pages),
			slog.Int("skipped_frames", result.SkippedFrames),
			slog.Int("bytes", len(result.Data)),
			slog.Duration("duration", time.Since(start)),
		)
		doc = result
		return nil
	})
	if err != nil {
		var convErr *Error
		if errors.As(err, &convErr) {
			return nil, convErr
		}
		s.logger.Error("failed to acquire workspace",
			slog.String("error", err.Error()),
		)
		return nil, newError(KindWorkspace, "could not allocate workspace", err)
	}
	return doc, nil
}

// convertIn runs the pipeline inside ws. A panicking collaborator is
// reported as a failure of the stage it was called from.
func (s *Service) convertIn(ctx context.Context, logger *slog.Logger, ws *workspace.Workspace, req Request) (doc *Document, convErr *Error) {
	stage := KindFetch
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered during conversion",
				slog.String("kind", string(stage)),
				slog.Any("panic", r),
			)
			doc, convErr = nil, newError(stage, "internal failure", fmt.Errorf("panic: %v", r))
		}
	}()

	return s.run(ctx, logger, ws, req, &stage)
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, ws *workspace.Workspace, req Request, stage *Kind) (*Document, *Error) {
	videoPath := ws.VideoPath()

	*stage = KindFetch
	logger.Debug("fetching video", slog.String("dest", videoPath))
	if err := s.fetcher.Fetch(ctx, req.SourceLocator, videoPath); err != nil {
		return nil, newError(KindFetch, "could not download video", err)
	}

	*stage = KindDecode
	logger.Debug("sampling frames")
	frames, stats, err := s.sampler.Sample(ctx, videoPath, req.IntervalSeconds)
	if err != nil {
		if errors.Is(err, media.ErrEmptyResult) {
			return nil, newError(KindNoFrames, "no frames extracted, check the video or interval", err)
		}
		return nil, newError(KindDecode, "could not decode video", err)
	}
	if stats.Skipped > 0 {
		logger.Warn("some sampled frames were skipped",
			slog.Int("skipped", stats.Skipped),
			slog.Int("selected", stats.Selected),
		)
	}

	images := make([][]byte, len(frames))
	for i, f := range frames {
		images[i] = f.Data
	}

	*stage = KindAssembly
	logger.Debug("assembling document", slog.Int("pages", len(images)))
	data, err := s.assembler.Assemble(ctx, images)
	if err != nil {
		return nil, newError(KindAssembly, "could not build document", err)
	}

	return &Document{
		Data:          data,
		Filename:      DocumentFilename,
		ContentType:   DocumentContentType,
		Pages:         len(images),
		SkippedFrames: stats.Skipped,
	}, nil
}
