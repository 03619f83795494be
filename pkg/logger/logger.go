// Package logger 全局结构化日志(zap)
//
// 请求级字段(request_id)通过context传递,业务代码统一使用Info/Warn/Error(ctx, ...)
package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例
// 未初始化时为Nop,保证单元测试中直接调用不会panic
var Log = zap.NewNop()

type ctxKey struct{}

// RequestIDKey gin.Context中保存请求ID的key
const RequestIDKey = "request_id"

// Initialize 按运行环境初始化日志
// production: JSON输出 + ISO8601时间; 其他: 彩色console输出
func Initialize(env, level string) {
	var cfg zap.Config
	if env == "production" || env == "release" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	l, err := cfg.Build()
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	Log = l
}

// Sync 刷新缓冲区,进程退出前调用
func Sync() {
	_ = Log.Sync()
}

// WithRequestID 将请求ID写入context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID 从context读取请求ID
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	// gin.Context实现了context.Context,Value(string)可取到c.Set写入的值
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func withRequestID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}

// Info 记录info日志(自动附带request_id)
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Info(msg, withRequestID(ctx, fields)...)
}

// Warn 记录warn日志
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Warn(msg, withRequestID(ctx, fields)...)
}

// Error 记录error日志,err可为nil
func Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = withRequestID(ctx, fields)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// Debug 记录debug日志
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Debug(msg, withRequestID(ctx, fields)...)
}
