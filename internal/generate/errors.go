package generate

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConfig means no model is active for the requested task.
	ErrConfig = errors.New("generate: no active model configured")
	// ErrUpstreamHTTP means the model endpoint answered with a non-2xx status.
	ErrUpstreamHTTP = errors.New("generate: upstream error status")
	// ErrUpstreamConnect means the model endpoint could not be reached.
	ErrUpstreamConnect = errors.New("generate: upstream unreachable")
	// ErrTimeout means the call hit its deadline.
	ErrTimeout = errors.New("generate: upstream timed out")
	// ErrCancelled means the caller abandoned the stream.
	ErrCancelled = errors.New("generate: cancelled")
	// ErrEmptyResult means the stream finished without usable output.
	ErrEmptyResult = errors.New("generate: no output in response")
	// ErrMalformedReport means report output was not a JSON object.
	ErrMalformedReport = errors.New("generate: malformed report")
)

// HTTPError carries the status and a prefix of the body of a failed call.
// StatusCode is zero when the endpoint reported the error inside an
// already accepted stream.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("generate: upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrUpstreamHTTP }

// Retryable reports whether err is a transient generation failure that a
// later attempt may not repeat.
func Retryable(err error) bool {
	for _, target := range []error{ErrUpstreamHTTP, ErrUpstreamConnect, ErrTimeout, ErrEmptyResult, ErrMalformedReport} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Kind returns a short label for metrics and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrUpstreamHTTP):
		return "upstream_http"
	case errors.Is(err, ErrUpstreamConnect):
		return "upstream_connect"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrMalformedReport):
		return "malformed_report"
	}
	return "internal"
}

// classifyTransport maps transport and context errors onto the taxonomy.
func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamConnect, err)
}
