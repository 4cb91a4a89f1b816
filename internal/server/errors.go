package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-studentdb/auth"
	"github.com/goliatone/go-studentdb/jobs"
	"github.com/goliatone/go-studentdb/student"
)

// errNotFoundBody is the body of every 404.
const errNotFoundBody = "not found"

// statusOf maps a service error to its HTTP status and client message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, student.ErrNotFound):
		return http.StatusNotFound, errNotFoundBody
	case errors.Is(err, student.ErrMalformedInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrAccessDenied):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrRunnerClosed):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, student.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
