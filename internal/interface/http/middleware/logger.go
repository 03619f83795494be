package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// RequestIDHeader 请求ID响应头,上游已带则沿用
const RequestIDHeader = "X-Request-ID"

const slowRequest = 3 * time.Second

// RequestLogger 生成请求ID并记录访问日志
// 请求ID同时写入gin.Context和Request.Context,use case中的日志也能带上
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if latency > slowRequest {
			logger.Warn(c, "slow request", fields...)
			return
		}
		logger.Info(c, "request", fields...)
	}
}
