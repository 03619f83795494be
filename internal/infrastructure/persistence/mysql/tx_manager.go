package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
)

type txKey struct{}

// TxManager 基于GORM的事务管理器
// 事务连接通过context传递,仓储用conn(ctx)取出
type TxManager struct {
	db *gorm.DB
}

var _ order.TxManager = (*TxManager)(nil)

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction fn返回error时回滚,返回nil时提交
// ctx中已有事务时直接在该事务中执行fn,不开启savepoint:
// 内层失败会让外层整体回滚,行锁也一直持有到外层结束
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 从context取事务连接,没有则使用默认连接
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
