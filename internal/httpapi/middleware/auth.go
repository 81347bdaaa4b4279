package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribestack/transcription-service/internal/common"
)

// APIKeyHeader is the header carrying the caller's static key.
const APIKeyHeader = "X-API-Key"

// APIKeyRequired checks the static key allow-list. With no keys configured
// the check is disabled, matching local development setups.
func APIKeyRequired(keys []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "api key required")
			c.Abort()
			return
		}
		if _, ok := allowed[key]; !ok {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid api key")
			c.Abort()
			return
		}
		c.Next()
	}
}
