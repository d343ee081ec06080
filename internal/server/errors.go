package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/lifecycle"
	"github.com/zulandar/vibeyard/internal/messaging"
	"github.com/zulandar/vibeyard/internal/prompt"
	"github.com/zulandar/vibeyard/internal/settings"
	"github.com/zulandar/vibeyard/internal/share"
	"github.com/zulandar/vibeyard/internal/studio"
	"github.com/zulandar/vibeyard/internal/version"
)

// errForbidden is returned by access checks in handlers.
var errForbidden = errors.New("server: forbidden")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, version.ErrValidation),
		errors.Is(err, aimodel.ErrUnknownTask),
		errors.Is(err, aimodel.ErrInvalid),
		errors.Is(err, settings.ErrUnknownKey):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden), errors.Is(err, studio.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, version.ErrNotFound),
		errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, share.ErrNotFound),
		errors.Is(err, aimodel.ErrNotFound),
		errors.Is(err, prompt.ErrNotFound),
		errors.Is(err, messaging.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, share.ErrExpired):
		return http.StatusGone
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrReportRequired):
		return http.StatusConflict
	case errors.Is(err, generate.ErrConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, generate.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, generate.ErrUpstreamHTTP),
		errors.Is(err, generate.ErrUpstreamConnect),
		errors.Is(err, generate.ErrEmptyResult),
		errors.Is(err, generate.ErrMalformedReport):
		return http.StatusBadGateway
	case errors.Is(err, generate.ErrCancelled):
		return 499
	case errors.Is(err, version.ErrCorruptGraph):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// writeError responds with the mapped status and logs server-side failures.
func (s *server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": generate.Kind(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
