package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "qdrant status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant status: %s", e.Status)
	}
	return fmt.Sprintf("qdrant status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func classifyIndexError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retry: false, TripBreaker: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return resilience.Classification{Retry: true, TripBreaker: true}
		default:
			return resilience.Classification{Retry: false, TripBreaker: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Classification{Retry: true, TripBreaker: true}
	}

	return resilience.Classification{Retry: false, TripBreaker: true}
}

func wrapIndexError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrIndexUnavailable) {
		return err
	}
	if resilience.IsCircuitOpen(err) || classifyIndexError(err).Retry {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant "+operation, err)
	}
	return err
}
