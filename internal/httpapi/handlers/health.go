package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scribestack/transcription-service/internal/common"
)

const serviceVersion = "1.0.0"

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, http.StatusOK, gin.H{"message": "pong"})
}

// Health reports liveness: database reachability, uptime, version.
func (h *Handler) Health(c *gin.Context) {
	status := "healthy"
	httpStatus := http.StatusOK

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"service": "transcription-service",
		"version": serviceVersion,
		"uptime":  time.Since(h.startedAt).Seconds(),
	})
}
