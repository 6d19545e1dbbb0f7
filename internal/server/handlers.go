package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/video2pdf-api/internal/conversion"
)

const (
	defaultInterval = 5.0
	defaultTimeout  = 10 * time.Minute
	maxBodyBytes    = 1 << 20
)

// Converter runs a conversion.
type Converter interface {
	Convert(ctx context.Context, req conversion.Request) (*conversion.Document, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service         Converter
	validator       *validator.Validate
	logger          *slog.Logger
	defaultInterval float64
	timeout         time.Duration
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultInterval sets the interval used when a request omits one.
func WithDefaultInterval(seconds float64) HandlerOption {
	return func(h *Handlers) {
		if seconds > 0 {
			h.defaultInterval = seconds
		}
	}
}

// WithRequestTimeout bounds how long a single conversion may run.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Converter, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:         service,
		validator:       validator.New(),
		logger:          logger,
		defaultInterval: defaultInterval,
		timeout:         defaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Convert handles POST /api/convert requests. The response body is the PDF.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "URL is required", string(conversion.KindValidation))
		return
	}

	interval := h.defaultInterval
	if req.Interval != nil && req.Interval.Set {
		interval = req.Interval.Value
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	doc, err := h.service.Convert(ctx, conversion.Request{
		SourceLocator:   req.URL,
		IntervalSeconds: interval,
	})
	if err != nil {
		var convErr *conversion.Error
		if errors.As(err, &convErr) {
			writeError(w, convErr.Kind.HTTPStatus(), convErr.Detail(), string(convErr.Kind))
			return
		}
		h.logger.Error("conversion failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "conversion failed", "INTERNAL_ERROR")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.Pages))
	w.Header().Set("X-Skipped-Frames", strconv.Itoa(doc.SkippedFrames))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.Warn("failed to write document",
			slog.String("error", err.Error()),
		)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
