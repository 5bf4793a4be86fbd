package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/auth"
	"faceattend/internal/deadline"
	"faceattend/internal/embedding"
	"faceattend/internal/model"
	"faceattend/internal/roster"
	"faceattend/internal/session"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, deadline.ErrConfiguration),
		errors.Is(err, model.ErrInvalidSchedule),
		errors.Is(err, model.ErrInvalidTimeOfDay),
		errors.Is(err, roster.ErrTooFewEmbeddings),
		errors.Is(err, embedding.ErrMalformed),
		errors.Is(err, auth.ErrCameraIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrNotFound), errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionActive):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err with the status it maps to. Internal errors are logged and hidden.
func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
