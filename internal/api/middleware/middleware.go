// Package middleware holds the gin middleware of the passportview API.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/idgen"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// Context keys set by the middleware
const (
	ContextKeyRequestID = "request_id"
	ContextKeyAccessPK  = "access_pk"
)

const (
	headerRequestID = "X-Request-ID"
	headerRenderID  = "X-Render-ID"
	maxRequestIDLen = 64
)

// abort ends the request with the API error body
func abort(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

// LoggerConfig holds the configuration for the Logger middleware
type LoggerConfig struct {
	AccessLog bool
}

// Logger logs failed requests, and successful ones when AccessLog is set.
// Passport routes also carry the render ID of the view they produced.
func Logger(cfg *LoggerConfig) gin.HandlerFunc {
	accessLog := cfg != nil && cfg.AccessLog

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && !accessLog {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Duration("latency", time.Since(start)),
		}
		if id := c.Writer.Header().Get(headerRenderID); id != "" {
			fields = append(fields, zap.String(logger.FieldRenderID, id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		log := logger.FromContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context()).Error("Panic recovered",
					zap.Any("error", err),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				abort(c, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error")
			}
		}()
		c.Next()
	}
}

// RequestID assigns each request an ID, reusing a well-formed X-Request-ID
// from the client, and puts a logger tagged with it into the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if !validRequestID(id) {
			id = idgen.NewRequestID()
		}

		c.Set(ContextKeyRequestID, id)
		c.Header(headerRequestID, id)
		ctx := logger.NewContext(c.Request.Context(), logger.Get().With(zap.String(ContextKeyRequestID, id)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// validRequestID accepts short printable ASCII IDs without spaces
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return false
		}
	}
	return true
}

// Metrics records request counts and latency labelled by route template
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}
