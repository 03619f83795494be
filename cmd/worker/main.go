// 支付确认消费者
//
// 从RabbitMQ消费webhook和回跳投递的支付确认,执行订单状态更新和库存扣减。
// 多个worker并发消费同一队列,同一订单的确认由行锁串行化。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/messaging"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/mq"
	"github.com/xiebiao/bookstore-orders/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.Initialize(cfg.Log.Env, cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName: cfg.Tracing.ServiceName + "-worker",
			Environment: cfg.Log.Env,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Error(ctx, "init tracer failed", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "worker exited", err)
		os.Exit(1)
	}
	logger.Info(ctx, "worker stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	orders := mysql.NewOrderRepository(db)
	books := mysql.NewBookRepository(db)
	tx := mysql.NewTxManager(db)
	confirm := apporder.NewConfirmPaymentUseCase(
		orders,
		mysql.NewUserRepository(db),
		redis.NewCartStore(redisClient, cfg.Redis.CartTTL),
		tx,
		order.NewStockReconciler(tx, orders, books),
	)

	handler := messaging.NewConfirmationHandler(func(ctx context.Context, c order.PaymentConfirmation) error {
		result, err := confirm.Execute(ctx, apporder.ConfirmPaymentRequest{
			OrderID:           c.OrderID,
			CheckoutSessionID: c.CheckoutSessionID,
			Outcome:           c.Outcome,
		})
		if err != nil {
			return err
		}
		logger.Info(ctx, "payment confirmation handled",
			zap.Uint("order_id", result.OrderID),
			zap.String("source", c.Source),
			zap.String("status", result.Status),
			zap.Bool("changed", result.Changed),
		)
		return nil
	})

	workers := cfg.MQ.Workers
	if workers <= 0 {
		workers = 1
	}

	// 每个worker独占连接,先全部建好再开始消费
	consumers := make([]*mq.Consumer, 0, workers)
	defer func() {
		for _, c := range consumers {
			c.Close()
		}
	}()
	for i := 0; i < workers; i++ {
		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType,
			cfg.MQ.Queue, cfg.MQ.BindingKeys, cfg.MQ.Prefetch)
		if err != nil {
			return err
		}
		consumers = append(consumers, consumer)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, consumer := range consumers {
		g.Go(func() error {
			return consumer.Consume(gctx, handler)
		})
	}
	logger.Info(ctx, "worker started", zap.Int("workers", workers), zap.String("queue", cfg.MQ.Queue))
	return g.Wait()
}
