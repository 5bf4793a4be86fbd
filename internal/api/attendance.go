package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
)

func (h *handler) listAttendance(c *gin.Context) {
	f := attendance.Filter{
		From:    c.Query("from"),
		To:      c.Query("to"),
		Group:   c.Query("group"),
		Faculty: c.Query("faculty"),
		Limit:   50,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	records, err := h.Ledger.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	summary, err := h.Ledger.Summarize(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": summary})
}
