package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods       = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsAllowHeaders  = strings.Join([]string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", headerRequestID}, ", ")
	corsExposeHeaders = strings.Join([]string{"Content-Length", "Content-Type", "Content-Disposition", headerRenderID, headerRequestID}, ", ")
)

// CORS allows cross-origin calls from the listed origins only.
// Preflights from other origins are rejected with 403.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := allowed[origin]
		ok = ok && origin != ""

		if ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if ok {
			c.AbortWithStatus(http.StatusNoContent)
		} else {
			c.AbortWithStatus(http.StatusForbidden)
		}
	}
}
