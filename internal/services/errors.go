package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition marks a missing input (file, duration, beat) detected before
	// any external tool runs.
	ErrPrecondition = errors.New("precondition error")
	// ErrGeneration marks a producer that returned nothing usable or an encoder
	// invocation that failed.
	ErrGeneration = errors.New("generation error")
	// ErrNetwork marks download and probe failures, including timeouts.
	ErrNetwork = errors.New("network error")
	// ErrConfiguration marks invalid or incomplete settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns a short label for the marker carried by err.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrGeneration):
		return "generation"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
