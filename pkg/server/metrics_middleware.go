package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tidechain/matchbook/pkg/otel"
)

// metricsMiddleware records request counts, latency and errors per route.
func metricsMiddleware() gin.HandlerFunc {
	metrics, err := otel.DefaultHTTPServerMetrics()
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := c.Request.Context()

		metrics.IncRequests(ctx, c.Request.Method, route)
		metrics.AddInFlightRequests(ctx, 1)
		start := time.Now()

		c.Next()

		metrics.AddInFlightRequests(ctx, -1)
		status := c.Writer.Status()
		metrics.RecordLatency(ctx, c.Request.Method, route, time.Since(start), status)
		if status >= 400 {
			metrics.IncErrors(ctx, c.Request.Method, route, status)
		}
	}
}
