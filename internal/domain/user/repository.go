package user

import (
	"context"
	"time"
)

// Repository 用户仓储接口
type Repository interface {
	// Create 邮箱重复时返回ErrEmailDuplicate
	Create(ctx context.Context, user *User) error

	FindByID(ctx context.Context, id uint) (*User, error)

	FindByEmail(ctx context.Context, email string) (*User, error)

	Update(ctx context.Context, user *User) error

	// List 后台客户列表,keyword匹配邮箱或昵称
	List(ctx context.Context, params ListParams) ([]*User, int64, error)

	// RecordLastOrder 记录最近一次支付成功的订单
	RecordLastOrder(ctx context.Context, userID, orderID uint, at time.Time) error
}

// ListParams 用户列表参数
type ListParams struct {
	Page     int
	PageSize int
	Keyword  string
	Role     Role
}
