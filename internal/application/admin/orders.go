package admin

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
)

// OrderAdminUseCase 管理员处理订单:推进配送、处理退款、删除退款记录
// 状态变更和审计日志在同一事务中写入
type OrderAdminUseCase struct {
	orders     order.Repository
	audits     audit.Repository
	tx         order.TxManager
	reconciler *order.StockReconciler
}

// NewOrderAdminUseCase 创建订单管理用例
func NewOrderAdminUseCase(orders order.Repository, audits audit.Repository, tx order.TxManager, reconciler *order.StockReconciler) *OrderAdminUseCase {
	return &OrderAdminUseCase{orders: orders, audits: audits, tx: tx, reconciler: reconciler}
}

func resourceID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// forwardDelivery 正向履约链
var forwardDelivery = map[order.DeliveryStatus]order.DeliveryStatus{
	order.DeliveryPending:    order.DeliveryProcessing,
	order.DeliveryProcessing: order.DeliveryShipped,
	order.DeliveryShipped:    order.DeliveryDelivered,
}

// AdvanceDeliveryRequest To为空时推进到下一个状态
type AdvanceDeliveryRequest struct {
	OrderID uint
	To      string
}

// AdvanceDelivery pending → processing → shipped → delivered
// 只推进paid/unpaid订单;库存尚未扣减的在同一事务中先扣减
func (uc *OrderAdminUseCase) AdvanceDelivery(ctx context.Context, actor audit.Actor, req AdvanceDeliveryRequest) (*apporder.OrderDTO, error) {
	var updated *order.Order
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}

		next, ok := forwardDelivery[o.DelivStatus]
		if req.To != "" {
			to, err := order.ParseDeliveryStatus(req.To)
			if err != nil {
				return apperrors.WrapCode(err, apperrors.ErrCodeInvalidParams, "配送状态不正确")
			}
			// 退款相关状态只能通过退款流程进入
			if !ok || to != next {
				return order.ErrInvalidStatusTransition
			}
		} else if !ok {
			return order.ErrInvalidStatusTransition
		}
		if !o.Fulfillable() {
			return order.ErrNotFulfillable
		}

		before := o.Snapshot()
		if !o.StockDeducted {
			if _, err := uc.reconciler.Deduct(txCtx, o.ID); err != nil {
				return err
			}
			o.StockDeducted = true
		}
		if err := o.TransitionDelivery(next, time.Now()); err != nil {
			return err
		}
		if err := uc.orders.Update(txCtx, o); err != nil {
			return err
		}
		updated = o
		return uc.audits.Append(txCtx, audit.NewEntry(actor, audit.ActionAdvanceDelivery,
			audit.ResourceOrder, resourceID(o.ID), before, o.Snapshot()).ForUser(o.UserID))
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues("delivery", string(updated.DelivStatus)).Inc()
	logger.Info(ctx, "delivery advanced",
		zap.Uint("order_id", updated.ID),
		zap.String("delivstatus", string(updated.DelivStatus)),
		zap.Uint("admin_id", actor.ID),
	)
	dto := apporder.NewOrderDTO(updated)
	return &dto, nil
}

// ResolveRefundRequest 处理退款请求
type ResolveRefundRequest struct {
	OrderID uint
	Approve bool
}

// ResolveRefund refund-processing → refunded | refund-rejected
func (uc *OrderAdminUseCase) ResolveRefund(ctx context.Context, actor audit.Actor, req ResolveRefundRequest) (*apporder.OrderDTO, error) {
	action := audit.ActionRejectRefund
	if req.Approve {
		action = audit.ActionApproveRefund
	}

	var updated *order.Order
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		before := o.Snapshot()
		if err := o.ResolveRefund(req.Approve, time.Now()); err != nil {
			return err
		}
		if err := uc.orders.Update(txCtx, o); err != nil {
			return err
		}
		updated = o
		return uc.audits.Append(txCtx, audit.NewEntry(actor, action,
			audit.ResourceRefund, resourceID(o.ID), before, o.Snapshot()).ForUser(o.UserID))
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues("delivery", string(updated.DelivStatus)).Inc()
	logger.Info(ctx, "refund resolved",
		zap.Uint("order_id", updated.ID),
		zap.Bool("approved", req.Approve),
		zap.Uint("admin_id", actor.ID),
	)
	dto := apporder.NewOrderDTO(updated)
	return &dto, nil
}

// DeleteRefundRecord 从退货列表删除已退款订单
func (uc *OrderAdminUseCase) DeleteRefundRecord(ctx context.Context, actor audit.Actor, orderID uint) error {
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if !o.Matches(order.IsReturned) {
			return order.ErrRefundRecordNotDeletable
		}
		before := o.Snapshot()
		if err := uc.orders.Delete(txCtx, o.ID); err != nil {
			return err
		}
		return uc.audits.Append(txCtx, audit.NewEntry(actor, audit.ActionDeleteRefundRecord,
			audit.ResourceRefund, resourceID(o.ID), before, nil).ForUser(o.UserID))
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "refund record deleted", zap.Uint("order_id", orderID), zap.Uint("admin_id", actor.ID))
	return nil
}
