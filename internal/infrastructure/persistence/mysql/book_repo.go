package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// bookRepository 图书仓储(MySQL)
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建图书失败")
	}
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := conn(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// Update 覆盖可编辑字段
func (r *bookRepository) Update(ctx context.Context, b *book.Book) error {
	result := conn(ctx, r.db).Model(&BookModel{ID: b.ID}).
		Select("title", "author", "category", "price", "rating", "stock", "cover_url", "description").
		Updates(toBookModel(b))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新图书失败")
	}
	if result.RowsAffected == 0 {
		// 值未变化时MySQL也返回0,再确认一次是否存在
		if _, err := r.FindByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete 软删除
func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&BookModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除图书失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	query := conn(ctx, r.db).Model(&BookModel{})

	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", kw, kw)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	case "rating_desc":
		query = query.Order("rating DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var models []BookModel
	err := paginate(query.Order("id DESC"), params.Page, params.PageSize).Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

// LockByID SELECT ... FOR UPDATE,已软删除的图书返回ErrBookNotFound
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "锁定图书失败")
	}
	return toBookEntity(&model), nil
}

// SetStock 写入库存,调用方已在同一事务中持有行锁
func (r *bookRepository) SetStock(ctx context.Context, id uint, stock int) error {
	if stock < 0 {
		stock = 0
	}
	result := conn(ctx, r.db).Model(&BookModel{}).Where("id = ?", id).Update("stock", stock)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}
	return nil
}

// AdjustStock stock = GREATEST(stock + delta, 0),单条语句原子完成
func (r *bookRepository) AdjustStock(ctx context.Context, id uint, delta int) error {
	result := conn(ctx, r.db).Model(&BookModel{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("GREATEST(CAST(stock AS SIGNED) + ?, 0)", delta))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "调整库存失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Price:       b.Price,
		Rating:      b.Rating,
		Stock:       b.Stock,
		CoverURL:    b.CoverURL,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBookEntity(m *BookModel) *book.Book {
	return &book.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Category:    m.Category,
		Price:       m.Price,
		Rating:      m.Rating,
		Stock:       m.Stock,
		CoverURL:    m.CoverURL,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
