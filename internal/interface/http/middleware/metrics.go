package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-orders/pkg/metrics"
)

// Metrics 记录HTTP请求数和耗时
// path使用路由模板(/api/v1/orders/:id),避免按订单ID产生无界标签
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestsInProgress.Inc()
		start := time.Now()

		c.Next()

		metrics.HTTPRequestsInProgress.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ObserveSince(metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path), start)
	}
}
