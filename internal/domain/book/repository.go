package book

import (
	"context"
)

// Repository 图书仓储接口
// 在事务中调用时,实现需从ctx中取出事务连接
type Repository interface {
	Create(ctx context.Context, book *Book) error

	// FindByID 找不到时返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	Update(ctx context.Context, book *Book) error

	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID SELECT ... FOR UPDATE,必须在事务中调用
	LockByID(ctx context.Context, id uint) (*Book, error)

	// SetStock 直接写入库存值(调用方已持有行锁)
	SetStock(ctx context.Context, id uint, stock int) error

	// AdjustStock 原子增减库存,结果小于0时截断为0
	AdjustStock(ctx context.Context, id uint, delta int) error
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int
	PageSize int
	Keyword  string // 匹配书名或作者
	Category string
	SortBy   string // price_asc, price_desc, rating_desc, created_at_desc
}
