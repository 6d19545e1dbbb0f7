// Package server provides the HTTP server for the video2pdf API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConvertRequest is the HTTP request body for a conversion.
type ConvertRequest struct {
	// URL names the source video.
	URL string `json:"url" validate:"required"`
	// Interval is the number of seconds between captured frames.
	// It is optional; the server default applies when it is absent.
	Interval *Seconds `json:"interval,omitempty"`
}

// Seconds is a duration in seconds that decodes from a JSON number or a
// numeric string, as sent by HTML form fields. An empty string or null
// decodes as absent.
type Seconds struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Seconds{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = Seconds{}
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("interval %q is not a number", str)
		}
		*s = Seconds{Value: v, Set: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("interval must be a number: %w", err)
	}
	*s = Seconds{Value: v, Set: true}
	return nil
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
