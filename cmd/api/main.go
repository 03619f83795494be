package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/xiebiao/bookstore-orders/docs"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/tracing"
)

// @title                       Bookstore Orders API
// @version                     1.0
// @description                 在线书店:下单、支付对账、配送与退款、后台报表
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	logger.Initialize(cfg.Log.Env, cfg.Log.Level)
	defer logger.Sync()
	ctx := context.Background()

	// 3. 链路追踪(可选)
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Log.Env,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Error(ctx, "init tracer failed", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "shutdown tracer failed", err)
				}
			}()
		}
	}

	// 4. 依赖注入
	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		logger.Error(ctx, "initialize app failed", err)
		os.Exit(1)
	}
	defer cleanup()

	// 5. 启动HTTP服务
	go func() {
		logger.Info(ctx, "api server started",
			zap.String("addr", app.Server.Addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server failed", err)
			os.Exit(1)
		}
	}()

	// 6. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", err)
	}
	logger.Info(ctx, "api server stopped")
}
