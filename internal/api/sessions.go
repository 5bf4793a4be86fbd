package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/deadline"
)

func (h *handler) startSession(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := deadline.DecodeSessionConfig(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.Sessions.Start(c.Request.Context(), cfg)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":    s.ID,
		"started_at":    s.StartedAt,
		"late_deadline": s.Window.Late,
		"deadline":      s.Window.Final,
	})
}

func (h *handler) stopSession(c *gin.Context) {
	sum, err := h.Sessions.Stop(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handler) sessionStatus(c *gin.Context) {
	st, err := h.Sessions.Status(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
