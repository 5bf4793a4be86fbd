package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/embedding"
	"faceattend/internal/model"
)

type enrollRequest struct {
	Name       string             `json:"name" binding:"required"`
	Surname    string             `json:"surname"`
	FatherName string             `json:"father_name"`
	Faculty    string             `json:"faculty"`
	Direction  string             `json:"direction"`
	Group      string             `json:"group"`
	Embeddings []embedding.Vector `json:"embeddings"`
}

func (h *handler) listStudents(c *gin.Context) {
	students, err := h.Roster.Repository().ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *handler) enrollStudent(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Roster.Enroll(c.Request.Context(), model.Student{
		ID:         c.Param("id"),
		Name:       req.Name,
		Surname:    req.Surname,
		FatherName: req.FatherName,
		Faculty:    req.Faculty,
		Direction:  req.Direction,
		Group:      req.Group,
	}, req.Embeddings)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) deleteStudent(c *gin.Context) {
	if err := h.Roster.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) reloadRoster(c *gin.Context) {
	stats, err := h.Roster.Reload(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": stats.Students, "references": stats.References, "skipped": stats.Skipped})
}

func (h *handler) listSchedules(c *gin.Context) {
	list, err := h.Roster.Repository().ListSchedules(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, s := range list {
		out = append(out, gin.H{
			"id":    s.ID,
			"day":   s.Day.String(),
			"start": s.Start.String(),
			"late":  s.Late.String(),
			"end":   s.End.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

func (h *handler) saveSchedule(c *gin.Context) {
	day, err := model.ParseWeekday(c.Param("day"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req struct {
		Start string `json:"start" binding:"required"`
		Late  string `json:"late" binding:"required"`
		End   string `json:"end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sch := model.Schedule{Day: day}
	for _, p := range []struct {
		dst *model.TimeOfDay
		src string
	}{{&sch.Start, req.Start}, {&sch.Late, req.Late}, {&sch.End, req.End}} {
		if *p.dst, err = model.ParseTimeOfDay(p.src); err != nil {
			h.fail(c, err)
			return
		}
	}
	saved, err := h.Roster.SaveSchedule(c.Request.Context(), sch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": saved.ID, "day": saved.Day.String()})
}

func (h *handler) deleteSchedule(c *gin.Context) {
	day, err := model.ParseWeekday(c.Param("day"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Roster.Repository().DeleteSchedule(c.Request.Context(), day); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
