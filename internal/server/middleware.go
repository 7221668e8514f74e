package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/storyteller/internal/observability"
)

// runIDHeader carries the generation run ID back to the client.
const runIDHeader = "X-Run-ID"

// requestLogger logs one line per request and records HTTP metrics.
func requestLogger(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if metrics != nil {
			metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(latency.Seconds())
		}

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency", latency,
		}
		if runID := c.Writer.Header().Get(runIDHeader); runID != "" {
			attrs = append(attrs, "run_id", runID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}

		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("request handled", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("request handled", attrs...)
		case route == "/healthz" || route == "/metrics":
			slog.Debug("request handled", attrs...)
		default:
			slog.Info("request handled", attrs...)
		}
	}
}
