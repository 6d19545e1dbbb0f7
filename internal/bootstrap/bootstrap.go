// Package bootstrap provides dependency initialization for the video2pdf API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/video2pdf-api/internal/config"
	"github.com/maauso/video2pdf-api/internal/conversion"
	"github.com/maauso/video2pdf-api/internal/document"
	"github.com/maauso/video2pdf-api/internal/fetch"
	"github.com/maauso/video2pdf-api/internal/media"
	"github.com/maauso/video2pdf-api/internal/workspace"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ConversionService *conversion.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize workspace root
	workspaces, err := workspace.NewManager(cfg.TempDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create workspace manager: %w", err)
	}
	logger.Info("workspace root configured",
		slog.String("temp_dir", workspaces.Root()),
	)

	// Initialize acquisition
	fetcher, err := initFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Report external tools; a missing one fails requests, not startup
	checkTools(ctx, cfg, logger)

	// Initialize frame sampling
	encoder, err := media.NewJPEGEncoder(cfg.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("create JPEG encoder: %w", err)
	}
	sampler := media.NewSampler(media.NewVidioDecoder(), encoder, logger)
	logger.Info("frame sampler initialized",
		slog.Int("jpeg_quality", encoder.Quality()),
	)

	// Initialize document assembly
	assembler, err := document.NewPDFAssembler(document.WithDPI(cfg.PageDPI))
	if err != nil {
		return nil, fmt.Errorf("create PDF assembler: %w", err)
	}

	svc := conversion.NewService(workspaces, fetcher, sampler, assembler, logger)

	return &Dependencies{
		ConversionService: svc,
	}, nil
}

// initFetcher creates the source router. s3:// sources are only routed when
// S3 is configured.
func initFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fetch.Router, error) {
	page := fetch.NewYTDLPFetcher(cfg.YTDLPPath, cfg.YTDLPFormat)
	direct := fetch.NewHTTPFetcher(fetch.WithMaxBytes(cfg.MaxDownloadBytes))

	if !cfg.S3Enabled() {
		logger.Info("S3 sources disabled")
		return fetch.NewRouter(page, direct, nil, logger), nil
	}

	s3Fetcher, err := fetch.NewS3Fetcher(ctx, fetch.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}, cfg.MaxDownloadBytes)
	if err != nil {
		return nil, fmt.Errorf("create S3 fetcher: %w", err)
	}
	logger.Info("S3 sources configured",
		slog.String("region", cfg.S3Region),
		slog.String("endpoint", cfg.S3Endpoint),
	)
	return fetch.NewRouter(page, direct, s3Fetcher, logger), nil
}

// checkTools logs the version of every external binary conversions rely on.
func checkTools(ctx context.Context, cfg *config.Config, logger *slog.Logger) []media.ToolStatus {
	tools := append([]media.Tool{}, media.DecoderTools...)
	tools = append(tools, media.Tool{Name: "yt-dlp", Path: cfg.YTDLPPath, VersionArgs: []string{"--version"}})

	statuses := media.ProbeTools(ctx, tools...)
	for _, st := range statuses {
		if !st.Available() {
			logger.Warn("external tool unavailable",
				slog.String("tool", st.Tool.Name),
				slog.String("error", st.Err.Error()),
			)
			continue
		}
		logger.Info("external tool found",
			slog.String("tool", st.Tool.Name),
			slog.String("version", st.Version),
		)
	}
	return statuses
}
