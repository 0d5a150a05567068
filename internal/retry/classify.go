package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrTimeout marks an attempt that lost the race against its timer.
	ErrTimeout = errors.New("operation timed out")
	// ErrAborted marks an attempt aborted by the upstream or transport.
	ErrAborted = errors.New("operation aborted")
)

// StatusCoder is implemented by upstream errors that carry an HTTP-style status.
type StatusCoder interface {
	StatusCode() int
}

var retryableMarkers = []string{
	"too many requests",
	"resource_exhausted",
	"resource exhausted",
}

// IsRetryable reports whether err is transient: rate limiting, abort, or timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrAborted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func outcomeFor(err error, retryable bool) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return outcomeTimeout
	case retryable:
		return outcomeRetryable
	default:
		return outcomeFatal
	}
}
