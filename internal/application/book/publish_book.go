package book

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// ManageBookUseCase 管理员维护图书目录
// 每次变更和审计日志在同一事务中写入
type ManageBookUseCase struct {
	bookService book.Service
	audits      audit.Repository
	tx          order.TxManager
}

// NewManageBookUseCase 创建图书维护用例
func NewManageBookUseCase(bookService book.Service, audits audit.Repository, tx order.TxManager) *ManageBookUseCase {
	return &ManageBookUseCase{
		bookService: bookService,
		audits:      audits,
		tx:          tx,
	}
}

// BookRequest 创建/编辑图书请求
type BookRequest struct {
	Title       string
	Author      string
	Category    string
	Price       int64 // 价格(分)
	Rating      float64
	Stock       int
	CoverURL    string
	Description string
}

func (r BookRequest) draft() book.Draft {
	return book.Draft{
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Price:       r.Price,
		Rating:      r.Rating,
		Stock:       r.Stock,
		CoverURL:    r.CoverURL,
		Description: r.Description,
	}
}

// Create 上架图书
func (uc *ManageBookUseCase) Create(ctx context.Context, actor audit.Actor, req BookRequest) (*BookDTO, error) {
	var created *book.Book
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		b, err := uc.bookService.Create(txCtx, req.draft())
		if err != nil {
			return err
		}
		created = b
		return uc.audits.Append(txCtx, audit.NewEntry(actor, audit.ActionCreateBook,
			audit.ResourceBook, strconv.FormatUint(uint64(b.ID), 10), nil, b.Snapshot()))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "book created", zap.Uint("book_id", created.ID), zap.Uint("admin_id", actor.ID))
	dto := NewBookDTO(created)
	return &dto, nil
}

// Update 编辑图书,整体覆盖可编辑字段
func (uc *ManageBookUseCase) Update(ctx context.Context, actor audit.Actor, id uint, req BookRequest) (*BookDTO, error) {
	var updated *book.Book
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		before, b, err := uc.bookService.Update(txCtx, id, req.draft())
		if err != nil {
			return err
		}
		updated = b
		return uc.audits.Append(txCtx, audit.NewEntry(actor, audit.ActionUpdateBook,
			audit.ResourceBook, strconv.FormatUint(uint64(id), 10), before, b.Snapshot()))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "book updated", zap.Uint("book_id", id), zap.Uint("admin_id", actor.ID))
	dto := NewBookDTO(updated)
	return &dto, nil
}

// Delete 下架图书
// 历史订单中的明细保留,库存扣减时会跳过已删除的图书
func (uc *ManageBookUseCase) Delete(ctx context.Context, actor audit.Actor, id uint) error {
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		b, err := uc.bookService.Delete(txCtx, id)
		if err != nil {
			return err
		}
		return uc.audits.Append(txCtx, audit.NewEntry(actor, audit.ActionDeleteBook,
			audit.ResourceBook, strconv.FormatUint(uint64(id), 10), b.Snapshot(), nil))
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "book deleted", zap.Uint("book_id", id), zap.Uint("admin_id", actor.ID))
	return nil
}
