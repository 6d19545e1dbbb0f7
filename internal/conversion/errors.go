package conversion

import (
	"fmt"
	"net/http"
)

// Kind classifies a conversion failure.
type Kind string

const (
	// KindValidation means the request itself was invalid; no resources were touched.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindWorkspace means the scratch directory could not be allocated.
	KindWorkspace Kind = "WORKSPACE_ERROR"
	// KindFetch means the source video could not be acquired.
	KindFetch Kind = "FETCH_ERROR"
	// KindDecode means the video could not be opened or read.
	KindDecode Kind = "DECODE_ERROR"
	// KindNoFrames means decoding succeeded but produced no pages.
	KindNoFrames Kind = "NO_FRAMES"
	// KindAssembly means the document could not be built.
	KindAssembly Kind = "ASSEMBLY_ERROR"
)

// HTTPStatus maps the kind to the status a transport should answer with.
// Caller-side problems are 4xx, environment and remote problems 5xx.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindNoFrames:
		return http.StatusBadRequest
	case KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single failure returned by Service.Convert.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Detail returns the message with the underlying cause, without the kind prefix.
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
