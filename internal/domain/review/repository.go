package review

import (
	"context"
)

// Repository 评价仓储接口
type Repository interface {
	// FindByBookAndUser 找不到返回ErrReviewNotFound
	FindByBookAndUser(ctx context.Context, bookID, userID uint) (*Review, error)

	FindByID(ctx context.Context, id uint) (*Review, error)

	// Save 按(book_id, user_id)唯一键插入或更新
	Save(ctx context.Context, review *Review) error

	// ListByBook 按创建时间倒序
	ListByBook(ctx context.Context, bookID uint) ([]*Review, error)

	Delete(ctx context.Context, id uint) error
}
