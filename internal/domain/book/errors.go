package book

import (
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在(含已删除)
	ErrBookNotFound = apperrors.ErrBookNotFound

	ErrTitleRequired  = apperrors.New(apperrors.ErrCodeInvalidParams, "书名不能为空")
	ErrAuthorRequired = apperrors.New(apperrors.ErrCodeInvalidParams, "作者不能为空")
	ErrInvalidPrice   = apperrors.New(apperrors.ErrCodeInvalidParams, "价格必须大于0")
	ErrInvalidRating  = apperrors.New(apperrors.ErrCodeInvalidParams, "评分必须在0-5之间")
	ErrInvalidStock   = apperrors.New(apperrors.ErrCodeInvalidParams, "库存不能为负数")

	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
