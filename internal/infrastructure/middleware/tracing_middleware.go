package middleware

import (
	"stagepass/pkg/logger"
	"stagepass/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a server span per request and exposes its trace id
// to the context logger.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("server.address", c.Request.Host),
			attribute.String("user_agent.original", c.Request.UserAgent()),
			attribute.String("client.address", c.ClientIP()),
		)

		if traceID := tracing.TraceID(ctx); traceID != "" {
			ctx = logger.WithTraceID(ctx, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.response.status_code", status),
			attribute.Int("http.response.body.size", c.Writer.Size()),
		)
		if caller := UserID(c); caller != "" {
			span.SetAttributes(tracing.UserIDKey.String(string(caller)))
		}

		if status >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
