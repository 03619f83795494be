package user

import (
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

var (
	ErrUserNotFound     = apperrors.ErrUserNotFound
	ErrEmailDuplicate   = apperrors.ErrEmailDuplicate
	ErrInvalidPassword  = apperrors.ErrInvalidPassword
	ErrWeakPassword     = apperrors.ErrWeakPassword
	ErrAccountSuspended = apperrors.ErrAccountSuspended

	ErrInvalidEmail    = apperrors.New(apperrors.ErrCodeInvalidParams, "邮箱格式不正确")
	ErrInvalidNickname = apperrors.New(apperrors.ErrCodeInvalidParams, "昵称长度应为2-50个字符")

	// ErrSuspendSelf 管理员不能停用自己
	ErrSuspendSelf = apperrors.New(apperrors.ErrCodeBusinessError, "不能停用当前登录的账号")
)
