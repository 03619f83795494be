package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
	"github.com/xiebiao/bookstore-orders/pkg/tracing"
)

const tracerName = "bookstore/order"

// StockLedger 扣减库存所需的图书仓储能力
type StockLedger interface {
	LockByID(ctx context.Context, id uint) (*book.Book, error)
	SetStock(ctx context.Context, id uint, stock int) error
}

// DeductResult 一次扣减的结果
type DeductResult struct {
	// AlreadyDeducted 订单之前已扣减过,本次没有修改任何库存
	AlreadyDeducted bool
	Deducted        int // 实际扣减的明细数
	Skipped         int // 图书已删除而跳过的明细数
	Clamped         int // 库存不足被截断为0的明细数
}

// StockReconciler 订单库存扣减
//
// 整个扣减在一个事务中完成:
//  1. 锁定订单行,stock_deducted已为true则直接返回(幂等)
//  2. 逐个锁定图书行,库存 = max(0, 库存 - max(1, 数量)),图书不存在则跳过
//  3. 条件更新stock_deducted=true
//
// 任何其他错误都会回滚整个批次,重试是安全的。
// 并发扣减在图书行锁上串行化,库存不会为负。
type StockReconciler struct {
	tx     TxManager
	orders Repository
	books  StockLedger
}

// NewStockReconciler 创建库存扣减器
func NewStockReconciler(tx TxManager, orders Repository, books StockLedger) *StockReconciler {
	return &StockReconciler{tx: tx, orders: orders, books: books}
}

// Deduct 为订单扣减库存,ctx中已有事务时加入该事务
func (r *StockReconciler) Deduct(ctx context.Context, orderID uint) (DeductResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.Deduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))

	start := time.Now()
	defer metrics.ObserveSince(metrics.StockDeductionDuration, start)

	var res DeductResult
	err := r.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		res, err = r.deduct(txCtx, orderID)
		return err
	})
	if err != nil {
		metrics.StockDeductionsTotal.WithLabelValues("failed").Inc()
		tracing.RecordError(span, err)
		logger.Error(ctx, "stock deduction rolled back", err, zap.Uint("order_id", orderID))
		return DeductResult{}, err
	}

	span.SetAttributes(
		attribute.Bool("order.already_deducted", res.AlreadyDeducted),
		attribute.Int("order.items_deducted", res.Deducted),
		attribute.Int("order.items_skipped", res.Skipped),
		attribute.Int("order.items_clamped", res.Clamped),
	)

	if res.AlreadyDeducted {
		metrics.StockDeductionsTotal.WithLabelValues("noop").Inc()
		return res, nil
	}

	metrics.StockDeductionsTotal.WithLabelValues("deducted").Inc()
	metrics.StockClampedTotal.Add(float64(res.Clamped))
	metrics.StockItemsSkippedTotal.Add(float64(res.Skipped))
	logger.Info(ctx, "stock deducted",
		zap.Uint("order_id", orderID),
		zap.Int("deducted", res.Deducted),
		zap.Int("skipped", res.Skipped),
		zap.Int("clamped", res.Clamped),
	)
	return res, nil
}

func (r *StockReconciler) deduct(ctx context.Context, orderID uint) (DeductResult, error) {
	var res DeductResult

	o, err := r.orders.LockByID(ctx, orderID)
	if err != nil {
		return res, err
	}
	if o.StockDeducted {
		res.AlreadyDeducted = true
		return res, nil
	}

	for _, item := range o.Items {
		b, err := r.books.LockByID(ctx, item.BookID)
		if errors.Is(err, book.ErrBookNotFound) {
			// 图书已下架,保留订单历史
			res.Skipped++
			logger.Warn(ctx, "book missing, item skipped",
				zap.Uint("order_id", orderID),
				zap.Uint("book_id", item.BookID),
			)
			continue
		}
		if err != nil {
			return res, err
		}

		newStock, clamped := b.DeductClamped(item.Quantity)
		if clamped {
			res.Clamped++
		}
		if err := r.books.SetStock(ctx, b.ID, newStock); err != nil {
			return res, err
		}
		res.Deducted++
	}

	flipped, err := r.orders.MarkStockDeducted(ctx, orderID)
	if err != nil {
		return res, err
	}
	if !flipped {
		return res, ErrConcurrentDeduction
	}
	o.StockDeducted = true
	return res, nil
}
