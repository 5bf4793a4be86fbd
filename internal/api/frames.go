package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/auth"
	"faceattend/internal/model"
	"faceattend/internal/queue"
)

func (h *handler) registerCamera(c *gin.Context) {
	var req struct {
		CameraID string `json:"camera_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.Cameras.Register(ctx, req.CameraID); err != nil {
		h.fail(c, err)
		return
	}
	tokens, err := auth.Issue(req.CameraID, auth.RoleCamera, h.Auth.Issuer, h.Auth.SigningKey, h.Auth.AccessTTL, h.Auth.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.Cameras.SaveRefreshToken(ctx, req.CameraID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		h.Log.Warn().Err(err).Str("camera_id", req.CameraID).Msg("refresh token not stored")
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// cameraID returns the authenticated camera, rejecting bodies that claim another.
func cameraID(c *gin.Context, claimed string) (string, bool) {
	claims, _ := auth.ClaimsFrom(c)
	if claimed != "" && claimed != claims.Subject {
		c.JSON(http.StatusForbidden, gin.H{"error": "camera mismatch"})
		return "", false
	}
	return claims.Subject, true
}

func (h *handler) postFrame(c *gin.Context) {
	var f model.Frame
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, ok := cameraID(c, f.CameraID)
	if !ok {
		return
	}
	f.CameraID = id
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	if err := queue.PublishFrame(c.Request.Context(), h.Detections, f); err != nil {
		h.Log.Error().Err(err).Str("camera_id", id).Msg("queue publish failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"faces": len(f.Detections)})
}

func (h *handler) postImage(c *gin.Context) {
	if h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "face extraction not configured"})
		return
	}
	var f model.ImageFrame
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url required"})
		return
	}
	id, ok := cameraID(c, f.CameraID)
	if !ok {
		return
	}
	f.CameraID = id
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	if err := queue.PublishImage(c.Request.Context(), h.Images, f); err != nil {
		h.Log.Error().Err(err).Str("camera_id", id).Msg("queue publish failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image queue unavailable"})
		return
	}
	c.Status(http.StatusAccepted)
}

// uploadImage accepts a multipart snapshot, stores it and queues it for face extraction.
func (h *handler) uploadImage(c *gin.Context) {
	if h.Snapshots == nil || h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	id, ok := cameraID(c, c.PostForm("camera_id"))
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	res, err := h.Snapshots.Upload(ctx, file, header.Filename)
	if err != nil {
		h.Log.Error().Err(err).Str("camera_id", id).Msg("snapshot upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	f := model.ImageFrame{CameraID: id, CapturedAt: time.Now(), ImageURL: res.SecureURL}
	if v := c.PostForm("captured_at"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.CapturedAt = t
		}
	}
	if err := queue.PublishImage(ctx, h.Images, f); err != nil {
		h.Log.Error().Err(err).Str("camera_id", id).Msg("queue publish failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"url": res.SecureURL})
}
