package cart

import (
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

var (
	ErrCartEmpty       = apperrors.New(apperrors.ErrCodeCartEmpty, "购物车为空")
	ErrItemNotFound    = apperrors.New(apperrors.ErrCodeNotFound, "购物车中没有这本书")
	ErrBookIDRequired  = apperrors.New(apperrors.ErrCodeInvalidParams, "缺少图书ID")
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
