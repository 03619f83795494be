package book

import (
	"strings"
	"time"
)

// Book 图书实体
// 价格以分为单位,库存永不为负
type Book struct {
	ID          uint
	Title       string
	Author      string
	Category    string
	Price       int64   // 价格(分)
	Rating      float64 // 评分 0-5
	Stock       int
	CoverURL    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Draft 管理员创建/编辑图书时提交的字段
type Draft struct {
	Title       string
	Author      string
	Category    string
	Price       int64
	Rating      float64
	Stock       int
	CoverURL    string
	Description string
}

// Normalize 去掉首尾空白
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Category = strings.TrimSpace(d.Category)
	d.CoverURL = strings.TrimSpace(d.CoverURL)
	return d
}

// Validate 校验字段,写库前调用
func (d Draft) Validate() error {
	if d.Title == "" {
		return ErrTitleRequired
	}
	if d.Author == "" {
		return ErrAuthorRequired
	}
	if d.Price <= 0 {
		return ErrInvalidPrice
	}
	if d.Rating < 0 || d.Rating > 5 {
		return ErrInvalidRating
	}
	if d.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// NewBook 由Draft创建图书(工厂方法)
func NewBook(d Draft) (*Book, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	b := &Book{CreatedAt: now}
	b.apply(d, now)
	return b, nil
}

// Update 用Draft整体覆盖可编辑字段
func (b *Book) Update(d Draft) error {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return err
	}
	b.apply(d, time.Now())
	return nil
}

func (b *Book) apply(d Draft, now time.Time) {
	b.Title = d.Title
	b.Author = d.Author
	b.Category = d.Category
	b.Price = d.Price
	b.Rating = d.Rating
	b.Stock = d.Stock
	b.CoverURL = d.CoverURL
	b.Description = d.Description
	b.UpdatedAt = now
}

// DeductClamped 扣减库存,不足时截断为0
// 返回扣减后的库存以及是否发生截断
func (b *Book) DeductClamped(quantity int) (newStock int, clamped bool) {
	if quantity < 1 {
		quantity = 1
	}
	newStock = b.Stock - quantity
	if newStock < 0 {
		newStock = 0
		clamped = true
	}
	b.Stock = newStock
	b.UpdatedAt = time.Now()
	return newStock, clamped
}

// Restock 归还库存(取消订单)
func (b *Book) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	b.Stock += quantity
	b.UpdatedAt = time.Now()
	return nil
}

// Snapshot 审计日志中记录的图书快照
func (b *Book) Snapshot() map[string]any {
	return map[string]any{
		"title":    b.Title,
		"author":   b.Author,
		"category": b.Category,
		"price":    b.Price,
		"rating":   b.Rating,
		"stock":    b.Stock,
		"cover":    b.CoverURL,
	}
}
