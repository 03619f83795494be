package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
)

// CancelOrderUseCase 买家取消订单
// 只有配送状态为pending的订单可以取消;已扣减的库存在同一事务中归还,然后删除订单
type CancelOrderUseCase struct {
	orders order.Repository
	books  book.Repository
	tx     order.TxManager
}

// NewCancelOrderUseCase 创建取消订单用例
func NewCancelOrderUseCase(orders order.Repository, books book.Repository, tx order.TxManager) *CancelOrderUseCase {
	return &CancelOrderUseCase{orders: orders, books: books, tx: tx}
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	UserID  uint
	OrderID uint
}

// Execute 执行取消
func (uc *CancelOrderUseCase) Execute(ctx context.Context, req CancelOrderRequest) error {
	var restocked int
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		if !o.IsOwnedBy(req.UserID) {
			return order.ErrNotOwner
		}
		if !o.CanCancel() {
			return order.ErrOrderInProcess
		}

		if o.StockDeducted {
			for _, item := range o.Items {
				// 与扣减时的max(1, 数量)保持一致
				err := uc.books.AdjustStock(txCtx, item.BookID, max(1, item.Quantity))
				if errors.Is(err, book.ErrBookNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				restocked++
			}
		}
		return uc.orders.Delete(txCtx, o.ID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order cancelled",
		zap.Uint("order_id", req.OrderID),
		zap.Uint("user_id", req.UserID),
		zap.Int("items_restocked", restocked),
	)
	return nil
}

// RequestRefundUseCase 买家申请退款
type RequestRefundUseCase struct {
	orders order.Repository
	tx     order.TxManager
}

// NewRequestRefundUseCase 创建退款申请用例
func NewRequestRefundUseCase(orders order.Repository, tx order.TxManager) *RequestRefundUseCase {
	return &RequestRefundUseCase{orders: orders, tx: tx}
}

// RequestRefundRequest 退款申请
type RequestRefundRequest struct {
	UserID  uint
	OrderID uint
	Reason  string
	Images  []string // 凭证图片URL,最多3张
}

// Execute 执行退款申请
func (uc *RequestRefundUseCase) Execute(ctx context.Context, req RequestRefundRequest) (*OrderDTO, error) {
	var result *order.Order
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		if !o.IsOwnedBy(req.UserID) {
			return order.ErrNotOwner
		}
		if err := o.RequestRefund(req.Reason, req.Images, time.Now()); err != nil {
			return err
		}
		if err := uc.orders.Update(txCtx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues("delivery", string(order.DeliveryRefundProcessing)).Inc()
	logger.Info(ctx, "refund requested", zap.Uint("order_id", result.ID))

	dto := NewOrderDTO(result)
	return &dto, nil
}

// 订单列表标签页
const (
	TabAll    = "all"
	TabRefund = "refund"
)

// ListMyOrdersUseCase 买家订单列表,按创建时间倒序
type ListMyOrdersUseCase struct {
	orders order.Repository
}

// NewListMyOrdersUseCase 创建订单列表用例
func NewListMyOrdersUseCase(orders order.Repository) *ListMyOrdersUseCase {
	return &ListMyOrdersUseCase{orders: orders}
}

// ListMyOrdersRequest 订单列表请求
type ListMyOrdersRequest struct {
	UserID   uint
	Tab      string // all | refund
	Page     int
	PageSize int
}

// ListMyOrdersResponse 订单列表响应
type ListMyOrdersResponse struct {
	Orders   []OrderDTO
	Total    int64
	Page     int
	PageSize int
}

// Execute 查询订单
func (uc *ListMyOrdersUseCase) Execute(ctx context.Context, req ListMyOrdersRequest) (*ListMyOrdersResponse, error) {
	filter := order.ListFilter{Page: req.Page, PageSize: req.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	switch strings.ToLower(strings.TrimSpace(req.Tab)) {
	case "", TabAll:
	case TabRefund:
		filter.Deliveries = order.RefundTabStatuses()
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "未知的订单标签页")
	}

	orders, total, err := uc.orders.ListByUserID(ctx, req.UserID, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = NewOrderDTO(o)
	}
	return &ListMyOrdersResponse{
		Orders:   dtos,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetOrderUseCase 订单详情,买家只能查看自己的订单
type GetOrderUseCase struct {
	orders order.Repository
}

// NewGetOrderUseCase 创建订单详情用例
func NewGetOrderUseCase(orders order.Repository) *GetOrderUseCase {
	return &GetOrderUseCase{orders: orders}
}

// Execute 查询订单,asAdmin为true时不校验归属
func (uc *GetOrderUseCase) Execute(ctx context.Context, userID, orderID uint, asAdmin bool) (*OrderDTO, error) {
	o, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !asAdmin && !o.IsOwnedBy(userID) {
		return nil, order.ErrNotOwner
	}
	dto := NewOrderDTO(o)
	return &dto, nil
}
