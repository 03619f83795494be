package book

import (
	"context"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
)

// BookDTO 图书信息
type BookDTO struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"` // 价格(分)
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
	InStock     bool    `json:"in_stock"`
	CoverURL    string  `json:"cover"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewBookDTO 领域实体 → DTO
func NewBookDTO(b *book.Book) BookDTO {
	return BookDTO{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Price:       b.Price,
		Rating:      b.Rating,
		Stock:       b.Stock,
		InStock:     b.Stock > 0,
		CoverURL:    b.CoverURL,
		Description: b.Description,
		CreatedAt:   b.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:   b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ListBooksUseCase 图书列表(公开接口)
type ListBooksUseCase struct {
	bookService book.Service
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{
		bookService: bookService,
	}
}

// ListBooksRequest 列表查询请求
type ListBooksRequest struct {
	Page     int
	PageSize int
	Keyword  string // 匹配书名或作者
	Category string
	SortBy   string // price_asc, price_desc, rating_desc, created_at_desc
}

// ListBooksResponse 列表查询响应
type ListBooksResponse struct {
	List     []BookDTO
	Total    int64
	Page     int
	PageSize int
}

// Execute 执行列表查询,列表项不含简介
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	books, total, err := uc.bookService.List(ctx, book.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Category: req.Category,
		SortBy:   req.SortBy,
	})
	if err != nil {
		return nil, err
	}

	list := make([]BookDTO, len(books))
	for i, b := range books {
		list[i] = NewBookDTO(b)
		list[i].Description = ""
	}
	return &ListBooksResponse{
		List:     list,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// GetBookUseCase 图书详情
type GetBookUseCase struct {
	bookService book.Service
}

// NewGetBookUseCase 创建详情用例
func NewGetBookUseCase(bookService book.Service) *GetBookUseCase {
	return &GetBookUseCase{bookService: bookService}
}

// Execute 查询详情
func (uc *GetBookUseCase) Execute(ctx context.Context, id uint) (*BookDTO, error) {
	b, err := uc.bookService.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewBookDTO(b)
	return &dto, nil
}
