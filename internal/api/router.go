package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/queue"
	"faceattend/internal/roster"
	"faceattend/internal/session"
	"faceattend/internal/store"
)

// AuthConfig carries token settings.
type AuthConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Deps are the services the HTTP layer drives.
type Deps struct {
	DB       *store.DB
	Redis    *store.Redis // nil with the in-memory queue
	Sessions *session.Manager
	Roster   *roster.Service
	Ledger   *attendance.Ledger
	Cameras  *auth.Cameras

	// Detections receives frames with embeddings; Images receives raw images
	// for the detector bridge and may be nil.
	Detections queue.Queue
	Images     queue.Queue

	// Snapshots stores uploaded camera images; nil disables /v1/frames/upload.
	Snapshots Uploader

	Auth            AuthConfig
	RateLimitPerMin int
	Log             zerolog.Logger
}

// Uploader stores an image and returns its public location.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*cloudinary.UploadResult, error)
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with every route.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics", "/v1/frames"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	limiter := httpmiddleware.NewSimpleTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin)
	r.Use(limiter.GinMiddleware(httpmiddleware.ClientIP))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.health)
	r.POST("/v1/cameras/register", h.registerCamera)

	cam := r.Group("/v1", auth.BearerAuth(d.Auth.SigningKey, d.Auth.Issuer, auth.RoleCamera))
	cam.POST("/frames", h.postFrame)
	cam.POST("/frames/image", h.postImage)
	cam.POST("/frames/upload", h.uploadImage)

	ops := r.Group("/v1", auth.BearerAuth(d.Auth.SigningKey, d.Auth.Issuer, auth.RoleOperator))
	ops.POST("/sessions", h.startSession)
	ops.DELETE("/sessions/current", h.stopSession)
	ops.GET("/sessions/current/status", h.sessionStatus)

	ops.GET("/students", h.listStudents)
	ops.PUT("/students/:id", h.enrollStudent)
	ops.DELETE("/students/:id", h.deleteStudent)
	ops.POST("/roster/reload", h.reloadRoster)

	ops.GET("/schedules", h.listSchedules)
	ops.PUT("/schedules/:day", h.saveSchedule)
	ops.DELETE("/schedules/:day", h.deleteSchedule)

	ops.GET("/attendance", h.listAttendance)
	return r
}

func (h *handler) health(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.DB.Healthy(ctx)
	body := gin.H{"db": dbHealthy, "session_active": h.Sessions.Active() != nil}
	healthy := dbHealthy
	if h.Redis != nil {
		redisHealthy := h.Redis.Healthy(ctx)
		body["redis"] = redisHealthy
		healthy = healthy && redisHealthy
	}
	status := http.StatusOK
	body["status"] = "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
