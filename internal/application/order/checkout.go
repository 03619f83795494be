package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
	"github.com/xiebiao/bookstore-orders/pkg/saga"
	"github.com/xiebiao/bookstore-orders/pkg/tracing"
)

// CheckoutOptions 下单配置,金额单位为分
type CheckoutOptions struct {
	Currency            string
	StandardShippingFee int64
	ExpressShippingFee  int64
	// SuccessURL/CancelURL 支付完成或取消后的回跳地址
	SuccessURL string
	CancelURL  string
	// Timeout 在线支付saga的整体超时
	Timeout time.Duration
}

// CheckoutUseCase 下单用例
//
// 在线支付: saga(create-order → create-payment-session),网关失败时订单被补偿为failed
// 货到付款: 一个事务内创建订单(unpaid)并立即扣减库存
type CheckoutUseCase struct {
	orders     order.Repository
	books      book.Repository
	carts      cart.Repository
	tx         order.TxManager
	reconciler *order.StockReconciler
	gateway    order.PaymentGateway
	opts       CheckoutOptions
}

// NewCheckoutUseCase 创建下单用例
func NewCheckoutUseCase(
	orders order.Repository,
	books book.Repository,
	carts cart.Repository,
	tx order.TxManager,
	reconciler *order.StockReconciler,
	gateway order.PaymentGateway,
	opts CheckoutOptions,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		orders:     orders,
		books:      books,
		carts:      carts,
		tx:         tx,
		reconciler: reconciler,
		gateway:    gateway,
		opts:       opts,
	}
}

// CheckoutRequest 下单请求
// Items为空时使用购物车中的商品
type CheckoutRequest struct {
	UserID         uint
	Items          []CheckoutItem
	Shipping       ShippingDTO
	DeliveryMethod string
	PaymentMethod  string
}

// CheckoutItem 下单明细
type CheckoutItem struct {
	BookID   uint
	Quantity int
}

// CheckoutResponse 下单响应
type CheckoutResponse struct {
	OrderID           uint   `json:"order_id"`
	OrderNo           string `json:"order_no"`
	Total             int64  `json:"total"`
	TotalYuan         string `json:"total_yuan"`
	Status            string `json:"status"`
	DelivStatus       string `json:"delivstatus"`
	CheckoutURL       string `json:"checkout_url,omitempty"`
	CheckoutSessionID string `json:"checkout_session_id,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// Execute 执行下单
func (uc *CheckoutUseCase) Execute(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.Checkout")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(req.UserID)),
		attribute.String("order.payment_method", req.PaymentMethod),
	)

	delivery, err := order.ParseDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		return nil, err
	}
	method, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	items, err := uc.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(order.NewOrderParams{
		OrderNo:        order.GenerateOrderNo(time.Now()),
		UserID:         req.UserID,
		Items:          items,
		ShippingFee:    uc.shippingFee(delivery),
		Shipping:       req.Shipping.ToShipping(),
		DeliveryMethod: delivery,
		PaymentMethod:  method,
	})
	if err != nil {
		return nil, err
	}

	var resp *CheckoutResponse
	if method == order.PaymentCOD {
		resp, err = uc.placeCOD(ctx, o)
	} else {
		resp, err = uc.placeOnline(ctx, o)
	}
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(string(method), "failure").Inc()
		tracing.RecordError(span, err)
		return nil, err
	}
	metrics.CheckoutsTotal.WithLabelValues(string(method), "success").Inc()
	span.SetAttributes(attribute.Int64("order.id", int64(o.ID)))
	return resp, nil
}

// resolveItems 以图书当前的价格和标题生成明细快照
func (uc *CheckoutUseCase) resolveItems(ctx context.Context, req CheckoutRequest) ([]order.OrderItem, error) {
	lines := req.Items
	if len(lines) == 0 {
		c, err := uc.carts.Get(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if c.IsEmpty() {
			return nil, cart.ErrCartEmpty
		}
		for _, item := range c.Items {
			lines = append(lines, CheckoutItem{BookID: item.BookID, Quantity: item.Quantity})
		}
	}

	items := make([]order.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.BookID == 0 {
			return nil, order.ErrBookIDRequired
		}
		if line.Quantity < 1 {
			return nil, order.ErrInvalidQuantity
		}
		b, err := uc.books.FindByID(ctx, line.BookID)
		if err != nil {
			return nil, err
		}
		items = append(items, order.OrderItem{
			BookID:   b.ID,
			Title:    b.Title,
			Author:   b.Author,
			CoverURL: b.CoverURL,
			Price:    b.Price,
			Quantity: line.Quantity,
		})
	}
	return items, nil
}

func (uc *CheckoutUseCase) shippingFee(m order.DeliveryMethod) int64 {
	if m == order.DeliveryExpress {
		return uc.opts.ExpressShippingFee
	}
	return uc.opts.StandardShippingFee
}

func (uc *CheckoutUseCase) placeOnline(ctx context.Context, o *order.Order) (*CheckoutResponse, error) {
	var session *order.CheckoutSession

	s := saga.NewSaga("checkout", uc.opts.Timeout)
	s.AddStep("create-order",
		func(ctx context.Context) error {
			return uc.orders.Create(ctx, o)
		},
		func(ctx context.Context) error {
			return uc.markFailed(ctx, o.ID)
		},
	)
	s.AddStep("create-payment-session",
		func(ctx context.Context) error {
			var err error
			session, err = uc.gateway.CreateCheckoutSession(ctx, order.CheckoutSessionRequest{
				OrderID:       o.ID,
				OrderNo:       o.OrderNo,
				UserID:        o.UserID,
				CustomerEmail: o.Shipping.Email,
				Currency:      uc.opts.Currency,
				Items:         o.Items,
				ShippingFee:   o.ShippingFee,
				SuccessURL:    uc.opts.SuccessURL,
				CancelURL:     uc.opts.CancelURL,
			})
			if err != nil {
				return err
			}
			o.CheckoutSessionID = session.ID
			o.UpdatedAt = time.Now()
			return uc.orders.Update(ctx, o)
		},
		nil,
	)

	if err := s.Execute(ctx); err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout session created",
		zap.Uint("order_id", o.ID),
		zap.String("order_no", o.OrderNo),
		zap.String("session_id", session.ID),
	)

	resp := newCheckoutResponse(o)
	resp.CheckoutURL = session.URL
	resp.CheckoutSessionID = session.ID
	return resp, nil
}

// markFailed saga补偿:initiated → failed
func (uc *CheckoutUseCase) markFailed(ctx context.Context, orderID uint) error {
	if orderID == 0 {
		return nil
	}
	return uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, orderID)
		if err != nil {
			return err
		}
		changed, err := o.MarkFailed(time.Now())
		if err != nil || !changed {
			return err
		}
		metrics.OrderTransitionsTotal.WithLabelValues("payment", string(order.PaymentFailed)).Inc()
		return uc.orders.Update(txCtx, o)
	})
}

// placeCOD 货到付款:下单即占用库存
func (uc *CheckoutUseCase) placeCOD(ctx context.Context, o *order.Order) (*CheckoutResponse, error) {
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		if err := o.MarkUnpaidCOD(time.Now()); err != nil {
			return err
		}
		if err := uc.orders.Create(txCtx, o); err != nil {
			return err
		}
		if _, err := uc.reconciler.Deduct(txCtx, o.ID); err != nil {
			return err
		}
		o.StockDeducted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues("payment", string(order.PaymentUnpaid)).Inc()

	if err := uc.carts.Clear(ctx, o.UserID); err != nil {
		logger.Warn(ctx, "clear cart after cod checkout failed",
			zap.Uint("user_id", o.UserID), zap.Error(err))
	}

	logger.Info(ctx, "cod order placed",
		zap.Uint("order_id", o.ID),
		zap.String("order_no", o.OrderNo),
	)
	return newCheckoutResponse(o), nil
}

func newCheckoutResponse(o *order.Order) *CheckoutResponse {
	return &CheckoutResponse{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		Total:       o.Total,
		TotalYuan:   FormatPrice(o.Total),
		Status:      o.Status.String(),
		DelivStatus: o.DelivStatus.String(),
		CreatedAt:   o.CreatedAt.Format(timeLayout),
	}
}
