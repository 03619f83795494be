package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口
// 在事务中调用时,实现需从ctx中取出事务连接
type Repository interface {
	// Create 创建订单及明细
	Create(ctx context.Context, order *Order) error

	// FindByID 包含明细,找不到返回ErrOrderNotFound
	FindByID(ctx context.Context, id uint) (*Order, error)

	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*Order, error)

	// LockByID SELECT ... FOR UPDATE并加载明细,必须在事务中调用
	LockByID(ctx context.Context, id uint) (*Order, error)

	// Update 更新状态、退款和支付会话字段(不改明细,不改stock_deducted)
	Update(ctx context.Context, order *Order) error

	// MarkStockDeducted UPDATE ... SET stock_deducted=1 WHERE id=? AND stock_deducted=0
	// 返回本次是否真正翻转了标记
	MarkStockDeducted(ctx context.Context, id uint) (bool, error)

	// Delete 删除订单及明细
	Delete(ctx context.Context, id uint) error

	// ListByUserID 用户订单,按创建时间倒序
	ListByUserID(ctx context.Context, userID uint, filter ListFilter) ([]*Order, int64, error)

	// ListForAdmin 后台视图的数据源,按创建时间倒序
	ListForAdmin(ctx context.Context, filter AdminFilter) ([]*Order, error)

	// HasPaidOrderWithBook 用户是否有包含该图书的已支付订单(评价资格)
	HasPaidOrderWithBook(ctx context.Context, userID, bookID uint) (bool, error)
}

// ListFilter 用户订单列表过滤
type ListFilter struct {
	Deliveries []DeliveryStatus // 为空表示全部
	Page       int
	PageSize   int
}

// AdminFilter 后台查询过滤,时间为创建时间的闭开区间[From, To)
type AdminFilter struct {
	From       *time.Time
	To         *time.Time
	Deliveries []DeliveryStatus
}

// TxManager 事务管理器
// fn内使用传入的ctx访问仓储;嵌套调用时加入外层事务
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
