package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// Handlers 所有HTTP处理器
type Handlers struct {
	User    *handler.UserHandler
	Book    *handler.BookHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// New 创建Gin引擎并注册路由
func New(cfg *config.Config, h Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(cfg.CORS),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Response{Code: http.StatusNotFound, Message: "接口不存在"})
	})

	limit := middleware.RateLimit(cfg.RateLimit)
	requireAuth := auth.RequireAuth()

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	{
		users.POST("/register", h.User.Register)
		users.POST("/login", h.User.Login)
		users.POST("/refresh", h.User.Refresh)
		users.POST("/logout", requireAuth, h.User.Logout)
		users.GET("/me", requireAuth, h.User.Profile)
	}

	books := v1.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.GET("/:id", h.Book.GetBook)
		books.GET("/:id/reviews", h.Book.ListReviews)
		books.POST("/:id/reviews", requireAuth, h.Book.SubmitReview)
	}
	v1.DELETE("/reviews/:id", requireAuth, h.Book.DeleteReview)

	cart := v1.Group("/cart", requireAuth)
	{
		cart.GET("", h.Cart.Get)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.Add)
		cart.PUT("/items/:book_id", h.Cart.SetQuantity)
		cart.DELETE("/items/:book_id", h.Cart.Remove)
	}

	orders := v1.Group("/orders", requireAuth)
	{
		orders.POST("", limit, h.Order.Checkout)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.DELETE("/:id", h.Order.CancelOrder)
		orders.POST("/:id/refund", limit, h.Order.RequestRefund)
	}

	// 网关回调不走登录态,靠签名校验
	payments := v1.Group("/payments")
	{
		payments.POST("/webhook", h.Payment.Webhook)
		payments.GET("/return", h.Payment.Return)
	}

	admin := v1.Group("/admin", requireAuth, auth.RequireAdmin())
	{
		admin.POST("/books", h.Book.CreateBook)
		admin.PUT("/books/:id", h.Book.UpdateBook)
		admin.DELETE("/books/:id", h.Book.DeleteBook)

		admin.GET("/orders/in-flight", h.Admin.InFlight)
		admin.GET("/orders/completed", h.Admin.Completed)
		admin.POST("/orders/:id/delivery", h.Admin.AdvanceDelivery)
		admin.POST("/orders/:id/refund", h.Admin.ResolveRefund)
		admin.GET("/refunds", h.Admin.RefundQueue)
		admin.GET("/returns", h.Admin.Returns)
		admin.DELETE("/returns/:id", h.Admin.DeleteRefundRecord)
		admin.GET("/reports/sales", h.Admin.SalesReport)

		admin.GET("/users", h.Admin.ListUsers)
		admin.POST("/users/:id/suspend", h.Admin.SuspendUser)
		admin.POST("/users/:id/reactivate", h.Admin.ReactivateUser)
		admin.GET("/audits", h.Admin.ListAudits)
	}

	return r
}
