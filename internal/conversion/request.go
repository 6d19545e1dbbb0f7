// Package conversion turns a hosted video into a PDF of frames sampled at a
// fixed interval. Service.Convert runs acquisition, sampling and assembly
// inside a request-scoped workspace and reports exactly one outcome.
package conversion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request is a caller's conversion request.
type Request struct {
	// SourceLocator names the video, e.g. a URL.
	SourceLocator string `validate:"required"`
	// IntervalSeconds is the wall-clock spacing between sampled frames.
	IntervalSeconds float64 `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request without touching any resource.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SourceLocator) == "" {
		return errors.New("source locator is required")
	}
	if math.IsNaN(r.IntervalSeconds) || math.IsInf(r.IntervalSeconds, 0) {
		return fmt.Errorf("interval must be a finite number of seconds, got %v", r.IntervalSeconds)
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q constraint", fieldName(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

func fieldName(field string) string {
	switch field {
	case "SourceLocator":
		return "source locator"
	case "IntervalSeconds":
		return "interval"
	default:
		return field
	}
}
