package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribestack/transcription-service/internal/common"
)

// GetMetrics returns job-derived service metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	m, err := h.Metrics.Collect(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to collect metrics")
		return
	}
	common.OK(c, http.StatusOK, m)
}

// GetJobStats returns the raw store statistics.
func (h *Handler) GetJobStats(c *gin.Context) {
	stats, err := h.Metrics.Stats(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50021, "failed to collect job stats")
		return
	}
	common.OK(c, http.StatusOK, gin.H{
		"total_jobs":            stats.TotalJobs,
		"jobs_by_status":        stats.ByStatus,
		"avg_processing_time":   stats.AvgProcessingTime,
		"jobs_created_last_24h": stats.JobsCreatedLast24h,
	})
}
