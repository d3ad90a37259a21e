package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/ctxutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// RequestObserver logs one line per request and records request metrics.
// Either sink may be nil. Successful health checks log at debug.
func RequestObserver(log *logger.Logger, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		method := strings.ToUpper(c.Request.Method)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(method, route, strconv.Itoa(status), elapsed)

		if log == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		// RequireAuth swaps the request context, so read it after c.Next.
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request", fields...)
		case route == "/healthcheck":
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
