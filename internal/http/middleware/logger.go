package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"prepwise.app/pipeline/common/logger"
)

// Logger writes one access log line per request through slog. Lines carry
// the trace ID when otelgin has started a span.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
			Component: "pipeline.http",
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(c),
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request completed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request completed", attrs...)
		default:
			slog.InfoContext(ctx, "request completed", attrs...)
		}
	}
}
