package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"listing_sync/internal/domain"
)

// FailureClass is the closed set of ways a destination mutation can fail.
type FailureClass int

const (
	// Fatal failures are recorded and the listing is left for the next run.
	Fatal FailureClass = iota
	// Retryable failures are transient; no in-run retry happens, the next
	// scheduled run picks the listing up again.
	Retryable
	// RecreateRequired means the table refuses a draft patch on this row and
	// the row must be deleted and created again.
	RecreateRequired
)

func (c FailureClass) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case RecreateRequired:
		return "recreate_required"
	default:
		return "fatal"
	}
}

// Classify maps an error from the table store onto a FailureClass.
func Classify(err error) FailureClass {
	if err == nil {
		return Fatal
	}
	if status, ok := domain.HTTPStatus(err); ok {
		switch status {
		case http.StatusBadRequest, http.StatusMethodNotAllowed:
			return RecreateRequired
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return Retryable
		}
		return Fatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Retryable
	}
	return Fatal
}
