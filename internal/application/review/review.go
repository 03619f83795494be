package review

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/review"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// ReviewUseCase 图书评价
// 每个用户对每本书一条评价,重复提交视为修改;只有买过的用户可以评价
type ReviewUseCase struct {
	reviews review.Repository
	orders  order.Repository
	books   book.Repository
	users   user.Repository
}

// NewReviewUseCase 创建评价用例
func NewReviewUseCase(reviews review.Repository, orders order.Repository, books book.Repository, users user.Repository) *ReviewUseCase {
	return &ReviewUseCase{reviews: reviews, orders: orders, books: books, users: users}
}

// ReviewDTO 评价
type ReviewDTO struct {
	ID        uint   `json:"id"`
	BookID    uint   `json:"book_id"`
	UserID    uint   `json:"user_id"`
	UserName  string `json:"user_name"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func newReviewDTO(r *review.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// SubmitRequest 提交评价
type SubmitRequest struct {
	UserID uint
	BookID uint
	Rating int
	Text   string
}

// Submit 新增或修改评价
func (uc *ReviewUseCase) Submit(ctx context.Context, req SubmitRequest) (*ReviewDTO, error) {
	if _, err := uc.books.FindByID(ctx, req.BookID); err != nil {
		return nil, err
	}
	purchased, err := uc.orders.HasPaidOrderWithBook(ctx, req.UserID, req.BookID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, review.ErrNotPurchased
	}

	u, err := uc.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.reviews.FindByBookAndUser(ctx, req.BookID, req.UserID)
	switch {
	case errors.Is(err, review.ErrReviewNotFound):
		existing, err = review.NewReview(req.BookID, req.UserID, u.DisplayName(), req.Rating, req.Text)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := existing.Revise(u.DisplayName(), req.Rating, req.Text); err != nil {
			return nil, err
		}
	}

	if err := uc.reviews.Save(ctx, existing); err != nil {
		return nil, err
	}
	logger.Info(ctx, "review saved",
		zap.Uint("book_id", req.BookID),
		zap.Uint("user_id", req.UserID),
		zap.Int("rating", req.Rating),
	)
	dto := newReviewDTO(existing)
	return &dto, nil
}

// ListResponse 图书评价列表和平均分
type ListResponse struct {
	Reviews []ReviewDTO `json:"reviews"`
	Average float64     `json:"average"`
	Count   int         `json:"count"`
}

// List 按时间倒序
func (uc *ReviewUseCase) List(ctx context.Context, bookID uint) (*ListResponse, error) {
	reviews, err := uc.reviews.ListByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	summary := review.Summarize(reviews)
	resp := &ListResponse{
		Reviews: make([]ReviewDTO, len(reviews)),
		Average: summary.Average,
		Count:   summary.Count,
	}
	for i, r := range reviews {
		resp.Reviews[i] = newReviewDTO(r)
	}
	return resp, nil
}

// Delete 删除自己的评价
func (uc *ReviewUseCase) Delete(ctx context.Context, userID, reviewID uint) error {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return review.ErrNotOwner
	}
	return uc.reviews.Delete(ctx, reviewID)
}
