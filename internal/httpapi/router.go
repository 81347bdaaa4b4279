package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/scribestack/transcription-service/internal/common"
	"github.com/scribestack/transcription-service/internal/config"
	"github.com/scribestack/transcription-service/internal/httpapi/handlers"
	"github.com/scribestack/transcription-service/internal/httpapi/middleware"
	"github.com/scribestack/transcription-service/internal/store/redisstore"
)

// NewRouter wires the HTTP surface. rds may be nil, which disables rate
// limiting.
func NewRouter(h *handlers.Handler, cfg config.Config, rds *redisstore.Store) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.Use(middleware.APIKeyRequired(cfg.APIKeys))
	api.Use(middleware.RateLimit(rds, cfg.RateLimitPerMinute))

	api.POST("/jobs/upload", h.UploadJob)
	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:job_id", h.GetJob)
	api.POST("/jobs/:job_id/retry", h.RetryJob)
	api.DELETE("/jobs/:job_id", h.CancelJob)

	api.GET("/metrics", h.GetMetrics)
	api.GET("/metrics/jobs", h.GetJobStats)

	return r
}
