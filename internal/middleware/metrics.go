package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academoscope/academoscope-api/internal/service"
)

// Metrics observes every request's method, route template, status and
// duration. Probe and scrape endpoints are excluded so they do not dominate
// the histograms.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		switch path {
		case "/metrics", "/health", "/ready":
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
