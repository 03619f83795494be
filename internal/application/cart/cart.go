package cart

import (
	"context"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
)

// CartUseCase 购物车操作
// 加入时记录图书快照,结算时再以图书当前价格为准
type CartUseCase struct {
	carts cart.Repository
	books book.Repository
}

// NewCartUseCase 创建购物车用例
func NewCartUseCase(carts cart.Repository, books book.Repository) *CartUseCase {
	return &CartUseCase{carts: carts, books: books}
}

// CartDTO 购物车
type CartDTO struct {
	Items     []ItemDTO `json:"items"`
	ItemCount int       `json:"item_count"`
	Subtotal  int64     `json:"subtotal"`
}

// ItemDTO 购物车条目
type ItemDTO struct {
	BookID   uint   `json:"book_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover"`
	Price    int64  `json:"price"`
	Quantity int    `json:"qty"`
}

func newCartDTO(c *cart.Cart) *CartDTO {
	dto := &CartDTO{Items: make([]ItemDTO, len(c.Items)), Subtotal: c.Subtotal()}
	for i, item := range c.Items {
		dto.Items[i] = ItemDTO{
			BookID:   item.BookID,
			Title:    item.Title,
			Author:   item.Author,
			CoverURL: item.CoverURL,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
		dto.ItemCount += item.Quantity
	}
	return dto
}

// Get 查看购物车
func (uc *CartUseCase) Get(ctx context.Context, userID uint) (*CartDTO, error) {
	c, err := uc.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newCartDTO(c), nil
}

// Add 加入购物车,已存在时累加数量
func (uc *CartUseCase) Add(ctx context.Context, userID, bookID uint, qty int) (*CartDTO, error) {
	if qty < 1 {
		return nil, cart.ErrInvalidQuantity
	}
	b, err := uc.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	item := cart.Item{
		BookID:   b.ID,
		Title:    b.Title,
		Author:   b.Author,
		CoverURL: b.CoverURL,
		Price:    b.Price,
		Quantity: qty,
	}
	return uc.update(ctx, userID, func(c *cart.Cart) error {
		return c.Add(item)
	})
}

// SetQuantity 修改数量,<=0时移除
func (uc *CartUseCase) SetQuantity(ctx context.Context, userID, bookID uint, qty int) (*CartDTO, error) {
	return uc.update(ctx, userID, func(c *cart.Cart) error {
		return c.SetQuantity(bookID, qty)
	})
}

// Remove 移除图书
func (uc *CartUseCase) Remove(ctx context.Context, userID, bookID uint) (*CartDTO, error) {
	return uc.update(ctx, userID, func(c *cart.Cart) error {
		c.Remove(bookID)
		return nil
	})
}

// Clear 清空购物车
func (uc *CartUseCase) Clear(ctx context.Context, userID uint) error {
	return uc.carts.Clear(ctx, userID)
}

func (uc *CartUseCase) update(ctx context.Context, userID uint, fn func(*cart.Cart) error) (*CartDTO, error) {
	c, err := uc.carts.Update(ctx, userID, fn)
	if err != nil {
		return nil, err
	}
	return newCartDTO(c), nil
}
