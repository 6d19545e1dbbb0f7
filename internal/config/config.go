// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidJPEGQuality is returned when JPEG_QUALITY is outside 1..100.
	ErrInvalidJPEGQuality = errors.New("config: JPEG_QUALITY must be between 1 and 100")
	// ErrInvalidPageDPI is returned when PAGE_DPI is not positive.
	ErrInvalidPageDPI = errors.New("config: PAGE_DPI must be positive")
	// ErrInvalidDefaultInterval is returned when DEFAULT_INTERVAL_SEC is not positive.
	ErrInvalidDefaultInterval = errors.New("config: DEFAULT_INTERVAL_SEC must be positive")
	// ErrInvalidRequestTimeout is returned when REQUEST_TIMEOUT is not positive.
	ErrInvalidRequestTimeout = errors.New("config: REQUEST_TIMEOUT must be positive")
	// ErrInvalidMaxDownload is returned when MAX_DOWNLOAD_BYTES is not positive.
	ErrInvalidMaxDownload = errors.New("config: MAX_DOWNLOAD_BYTES must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int           `env:"PORT, default=8080" json:"port"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT, default=10m" json:"request_timeout"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Workspace settings
	TempDir string `env:"TEMP_DIR, default=/tmp/video2pdf" json:"temp_dir"`

	// Acquisition settings
	YTDLPPath        string `env:"YTDLP_PATH, default=yt-dlp" json:"ytdlp_path"`
	YTDLPFormat      string `env:"YTDLP_FORMAT" json:"ytdlp_format,omitempty"`
	MaxDownloadBytes int64  `env:"MAX_DOWNLOAD_BYTES, default=2147483648" json:"max_download_bytes"`

	// Processing settings
	JPEGQuality        int     `env:"JPEG_QUALITY, default=95" json:"jpeg_quality"`
	PageDPI            float64 `env:"PAGE_DPI, default=96" json:"page_dpi"`
	DefaultIntervalSec float64 `env:"DEFAULT_INTERVAL_SEC, default=5" json:"default_interval_sec"`

	// Optional S3 source settings
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if s3:// sources can be fetched.
func (c *Config) S3Enabled() bool {
	return c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), nil)
}

// load processes cfg from lookuper, or from the OS environment when lookuper is nil.
func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return ErrInvalidJPEGQuality
	}
	if !(c.PageDPI > 0) {
		return ErrInvalidPageDPI
	}
	if !(c.DefaultIntervalSec > 0) {
		return ErrInvalidDefaultInterval
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	if c.MaxDownloadBytes <= 0 {
		return ErrInvalidMaxDownload
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, RequestTimeout: %s, TempDir: %s, YTDLPPath: %s, JPEGQuality: %d, PageDPI: %g, DefaultIntervalSec: %g, MaxDownloadBytes: %d, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.RequestTimeout,
		c.TempDir,
		c.YTDLPPath,
		c.JPEGQuality,
		c.PageDPI,
		c.DefaultIntervalSec,
		c.MaxDownloadBytes,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
