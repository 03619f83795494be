//go:build wireinject
// +build wireinject

// Wire依赖注入配置,修改后运行 `wire gen ./cmd/api` 重新生成wire_gen.go
//
// 依赖链:Repository ← Service ← UseCase ← Handler ← Router

package main

import (
	"github.com/google/wire"

	appadmin "github.com/xiebiao/bookstore-orders/internal/application/admin"
	appbook "github.com/xiebiao/bookstore-orders/internal/application/book"
	appcart "github.com/xiebiao/bookstore-orders/internal/application/cart"
	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	appreview "github.com/xiebiao/bookstore-orders/internal/application/review"
	appuser "github.com/xiebiao/bookstore-orders/internal/application/user"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/handler"
)

// infrastructureSet 连接类依赖,都带cleanup
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	providePublisher,
	provideJWTManager,
	providePaymentGateway,
	provideWebhookParser,
	provideConfirmationPublisher,
)

// repositorySet 仓储
var repositorySet = wire.NewSet(
	mysql.NewUserRepository,
	mysql.NewBookRepository,
	mysql.NewOrderRepository,
	mysql.NewReviewRepository,
	mysql.NewAuditRepository,
	provideTxManager,
	provideCartStore,
	redis.NewSessionStore,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	user.NewService,
	book.NewService,
	provideStockReconciler,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	appuser.NewProfileUseCase,
	appuser.NewRefreshTokenUseCase,
	provideLoginUseCase,
	provideLogoutUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewManageBookUseCase,
	appcart.NewCartUseCase,
	appreview.NewReviewUseCase,
	provideCheckoutOptions,
	apporder.NewCheckoutUseCase,
	apporder.NewCancelOrderUseCase,
	apporder.NewRequestRefundUseCase,
	apporder.NewListMyOrdersUseCase,
	apporder.NewGetOrderUseCase,
	apporder.NewPaymentNotificationUseCase,
	appadmin.NewOrderAdminUseCase,
	appadmin.NewAuditUseCase,
	provideViewUseCase,
	provideUserAdminUseCase,
)

// interfaceSet 处理器、中间件、路由
var interfaceSet = wire.NewSet(
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewCartHandler,
	handler.NewOrderHandler,
	handler.NewPaymentHandler,
	handler.NewAdminHandler,
	provideAuthMiddleware,
	provideHandlers,
	provideEngine,
	provideServer,
)

// InitializeApp 组装整个应用,cleanup按创建的逆序关闭连接
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
