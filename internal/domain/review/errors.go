package review

import (
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

var (
	ErrReviewNotFound = apperrors.New(apperrors.ErrCodeReviewNotFound, "评价不存在")
	ErrInvalidRating  = apperrors.New(apperrors.ErrCodeInvalidParams, "请选择1-5星评分")
	ErrTextTooLong    = apperrors.New(apperrors.ErrCodeInvalidParams, "评价内容不能超过1000字")

	// ErrNotPurchased 没有包含该书的已支付订单
	ErrNotPurchased = apperrors.New(apperrors.ErrCodeReviewNotAllowed, "购买后才能评价")

	ErrNotOwner = apperrors.New(apperrors.ErrCodeForbidden, "只能删除自己的评价")
)
