package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appadmin "github.com/xiebiao/bookstore-orders/internal/application/admin"
	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	appuser "github.com/xiebiao/bookstore-orders/internal/application/user"
	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/messaging"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/payment"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/router"
	"github.com/xiebiao/bookstore-orders/pkg/jwt"
	"github.com/xiebiao/bookstore-orders/pkg/mq"
)

// App 组装完成的应用
type App struct {
	Config *config.Config
	Server *http.Server
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

// provideDB 返回连接和关闭函数
func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(cfg *config.Config) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideTxManager(db *gorm.DB) order.TxManager {
	return mysql.NewTxManager(db)
}

func provideCartStore(cfg *config.Config, client *goredis.Client) cart.Repository {
	return redis.NewCartStore(client, cfg.Redis.CartTTL)
}

func provideStockReconciler(tx order.TxManager, orders order.Repository, books book.Repository) *order.StockReconciler {
	return order.NewStockReconciler(tx, orders, books)
}

func providePaymentGateway(cfg *config.Config) order.PaymentGateway {
	return payment.NewStripeGateway(cfg.Payment)
}

func provideWebhookParser(cfg *config.Config) handler.WebhookParser {
	return payment.NewWebhookParser(cfg.Payment.StripeWebhookSecret)
}

func providePublisher(cfg *config.Config) (*mq.Publisher, func(), error) {
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() { _ = pub.Close() }, nil
}

func provideConfirmationPublisher(cfg *config.Config, pub *mq.Publisher) order.ConfirmationPublisher {
	return messaging.NewConfirmationPublisher(pub, cfg.MQ.ConfirmationKey)
}

func provideCheckoutOptions(cfg *config.Config) apporder.CheckoutOptions {
	return apporder.CheckoutOptions{
		Currency:            cfg.Order.Currency,
		StandardShippingFee: cfg.Order.ShippingFee(false),
		ExpressShippingFee:  cfg.Order.ShippingFee(true),
		SuccessURL:          cfg.Server.PublicURL + cfg.Payment.SuccessPath,
		CancelURL:           cfg.Server.PublicURL + cfg.Payment.CancelPath,
		Timeout:             cfg.Order.CheckoutTimeout,
	}
}

// provideLoginUseCase 会话与Refresh Token同寿命
func provideLoginUseCase(cfg *config.Config, svc user.Service, jwtManager *jwt.Manager, sessions *redis.SessionStore) *appuser.LoginUseCase {
	return appuser.NewLoginUseCase(svc, jwtManager, sessions, cfg.JWT.RefreshTokenExpire)
}

func provideLogoutUseCase(sessions *redis.SessionStore, jwtManager *jwt.Manager) *appuser.LogoutUseCase {
	return appuser.NewLogoutUseCase(sessions, jwtManager)
}

func provideViewUseCase(cfg *config.Config, orders order.Repository, users user.Repository) *appadmin.ViewUseCase {
	return appadmin.NewViewUseCase(orders, users, cfg.Order.AdminReportWindow)
}

func provideUserAdminUseCase(users user.Repository, audits audit.Repository, tx order.TxManager, sessions *redis.SessionStore) *appadmin.UserAdminUseCase {
	return appadmin.NewUserAdminUseCase(users, audits, tx, sessions)
}

func provideAuthMiddleware(jwtManager *jwt.Manager, sessions *redis.SessionStore) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(jwtManager, sessions)
}

func provideHandlers(
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	cartHandler *handler.CartHandler,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	adminHandler *handler.AdminHandler,
) router.Handlers {
	return router.Handlers{
		User:    userHandler,
		Book:    bookHandler,
		Cart:    cartHandler,
		Order:   orderHandler,
		Payment: paymentHandler,
		Admin:   adminHandler,
	}
}

func provideEngine(cfg *config.Config, h router.Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	return router.New(cfg, h, auth)
}

func provideServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
