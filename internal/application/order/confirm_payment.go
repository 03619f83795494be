package order

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
	"github.com/xiebiao/bookstore-orders/pkg/tracing"
)

// ConfirmPaymentUseCase 处理支付确认(由worker消费队列消息后调用)
//
// paid:   扣减库存和initiated → paid在同一事务中完成,重复确认被吸收
// failed: initiated → failed,不触碰库存
type ConfirmPaymentUseCase struct {
	orders     order.Repository
	users      user.Repository
	carts      cart.Repository
	tx         order.TxManager
	reconciler *order.StockReconciler
}

// NewConfirmPaymentUseCase 创建支付确认用例
func NewConfirmPaymentUseCase(
	orders order.Repository,
	users user.Repository,
	carts cart.Repository,
	tx order.TxManager,
	reconciler *order.StockReconciler,
) *ConfirmPaymentUseCase {
	return &ConfirmPaymentUseCase{
		orders:     orders,
		users:      users,
		carts:      carts,
		tx:         tx,
		reconciler: reconciler,
	}
}

// ConfirmPaymentRequest OrderID优先,为0时按支付会话ID查找订单
type ConfirmPaymentRequest struct {
	OrderID           uint
	CheckoutSessionID string
	Outcome           order.PaymentOutcome
}

// ConfirmPaymentResponse 确认结果
type ConfirmPaymentResponse struct {
	OrderID       uint   `json:"order_id"`
	Status        string `json:"status"`
	Changed       bool   `json:"changed"` // false表示重复确认
	StockDeducted bool   `json:"stock_deducted"`
}

// Execute 执行支付确认
func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, req ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.outcome", string(req.Outcome)))

	orderID, err := uc.resolveOrderID(ctx, req)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))

	var resp *ConfirmPaymentResponse
	switch req.Outcome {
	case order.OutcomePaid:
		resp, err = uc.confirmPaid(ctx, orderID)
	case order.OutcomeFailed:
		resp, err = uc.confirmFailed(ctx, orderID)
	default:
		err = fmt.Errorf("%w: payment outcome %q", order.ErrUnknownStatus, req.Outcome)
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

func (uc *ConfirmPaymentUseCase) resolveOrderID(ctx context.Context, req ConfirmPaymentRequest) (uint, error) {
	if req.OrderID != 0 {
		return req.OrderID, nil
	}
	o, err := uc.orders.FindByCheckoutSessionID(ctx, req.CheckoutSessionID)
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (uc *ConfirmPaymentUseCase) confirmPaid(ctx context.Context, orderID uint) (*ConfirmPaymentResponse, error) {
	var (
		o       *order.Order
		changed bool
	)
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		locked, err := uc.orders.LockByID(txCtx, orderID)
		if err != nil {
			return err
		}
		// 先校验状态边,非法确认不会扣减库存
		changed, err = locked.MarkPaid(time.Now())
		if err != nil {
			return err
		}
		// 已支付的订单也走一遍,stock_deducted守卫保证不会重复扣减
		if _, err := uc.reconciler.Deduct(txCtx, orderID); err != nil {
			return err
		}
		locked.StockDeducted = true
		if changed {
			if err := uc.orders.Update(txCtx, locked); err != nil {
				return err
			}
		}
		o = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		logger.Info(ctx, "duplicate payment confirmation absorbed", zap.Uint("order_id", orderID))
		return confirmResponse(o, false), nil
	}

	metrics.OrderTransitionsTotal.WithLabelValues("payment", string(order.PaymentPaid)).Inc()
	if err := uc.users.RecordLastOrder(ctx, o.UserID, o.ID, *o.PaidAt); err != nil {
		logger.Warn(ctx, "record last order failed", zap.Uint("user_id", o.UserID), zap.Error(err))
	}
	if err := uc.carts.Clear(ctx, o.UserID); err != nil {
		logger.Warn(ctx, "clear cart after payment failed", zap.Uint("user_id", o.UserID), zap.Error(err))
	}
	logger.Info(ctx, "order paid",
		zap.Uint("order_id", o.ID),
		zap.String("order_no", o.OrderNo),
	)
	return confirmResponse(o, true), nil
}

func (uc *ConfirmPaymentUseCase) confirmFailed(ctx context.Context, orderID uint) (*ConfirmPaymentResponse, error) {
	var (
		o       *order.Order
		changed bool
	)
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		locked, err := uc.orders.LockByID(txCtx, orderID)
		if err != nil {
			return err
		}
		changed, err = locked.MarkFailed(time.Now())
		if err != nil {
			return err
		}
		o = locked
		if !changed {
			return nil
		}
		return uc.orders.Update(txCtx, locked)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.OrderTransitionsTotal.WithLabelValues("payment", string(order.PaymentFailed)).Inc()
		logger.Info(ctx, "order payment failed", zap.Uint("order_id", o.ID))
	}
	return confirmResponse(o, changed), nil
}

func confirmResponse(o *order.Order, changed bool) *ConfirmPaymentResponse {
	return &ConfirmPaymentResponse{
		OrderID:       o.ID,
		Status:        o.Status.String(),
		Changed:       changed,
		StockDeducted: o.StockDeducted,
	}
}
