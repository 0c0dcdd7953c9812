package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petmvp/passportview/consts"
)

// HealthChecker reports whether a dependency is usable
type HealthChecker func() error

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a health handler. Each check is reported under its key.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	components := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(); err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"version":    consts.Version,
		"uptime":     consts.Uptime().Round(time.Second).String(),
		"components": components,
	})
}
