package cart

import (
	"context"
)

// Repository 购物车存储
type Repository interface {
	// Get 不存在时返回空购物车
	Get(ctx context.Context, userID uint) (*Cart, error)

	Save(ctx context.Context, cart *Cart) error

	// Update 原子地读取、修改并写回购物车,fn返回错误时不写入
	// 多个标签页同时修改同一购物车时不会互相覆盖
	Update(ctx context.Context, userID uint, fn func(*Cart) error) (*Cart, error)

	Clear(ctx context.Context, userID uint) error
}
