package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-orders/internal/domain/review"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) FindByBookAndUser(ctx context.Context, bookID, userID uint) (*review.Review, error) {
	return r.findOne(conn(ctx, r.db).Where("book_id = ? AND user_id = ?", bookID, userID))
}

func (r *reviewRepository) FindByID(ctx context.Context, id uint) (*review.Review, error) {
	return r.findOne(conn(ctx, r.db).Where("id = ?", id))
}

func (r *reviewRepository) findOne(query *gorm.DB) (*review.Review, error) {
	var model ReviewModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrReviewNotFound
		}
		return nil, apperrors.Wrap(err, "查询评价失败")
	}
	return toReviewEntity(&model), nil
}

// Save INSERT ... ON DUPLICATE KEY UPDATE,同一用户对同一本书只保留一条
func (r *reviewRepository) Save(ctx context.Context, rv *review.Review) error {
	model := toReviewModel(rv)
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_name", "rating", "text", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return apperrors.Wrap(err, "保存评价失败")
	}
	if rv.ID == 0 && model.ID != 0 {
		rv.ID = model.ID
	}
	return nil
}

func (r *reviewRepository) ListByBook(ctx context.Context, bookID uint) ([]*review.Review, error) {
	var models []ReviewModel
	err := conn(ctx, r.db).Where("book_id = ?", bookID).
		Order("created_at DESC").Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询评价列表失败")
	}
	out := make([]*review.Review, len(models))
	for i := range models {
		out[i] = toReviewEntity(&models[i])
	}
	return out, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&ReviewModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除评价失败")
	}
	if result.RowsAffected == 0 {
		return review.ErrReviewNotFound
	}
	return nil
}

func toReviewModel(rv *review.Review) *ReviewModel {
	return &ReviewModel{
		ID:        rv.ID,
		BookID:    rv.BookID,
		UserID:    rv.UserID,
		UserName:  rv.UserName,
		Rating:    rv.Rating,
		Text:      rv.Text,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
	}
}

func toReviewEntity(m *ReviewModel) *review.Review {
	return &review.Review{
		ID:        m.ID,
		BookID:    m.BookID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Rating:    m.Rating,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
