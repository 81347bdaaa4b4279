package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scribestack/transcription-service/internal/common"
	"github.com/scribestack/transcription-service/internal/store/redisstore"
)

// RateLimit enforces a per-minute fixed window keyed by API key, falling
// back to client IP. A redis outage fails open: limiting is best-effort
// protection, not a correctness concern.
func RateLimit(store *redisstore.Store, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || perMinute <= 0 {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := store.Allow(c.Request.Context(), key, perMinute, time.Minute)
		if err != nil {
			log.Printf("rate limit check failed key=%s err=%v", key, err)
			c.Next()
			return
		}
		if !allowed {
			common.Fail(c, http.StatusTooManyRequests, 42900, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
