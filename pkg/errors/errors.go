package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
// Code供客户端判断错误类型,Message是用户可见的提示,Err只进日志不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装底层错误(数据库、网络、第三方服务),对外隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// WrapCode 使用指定错误码包装底层错误
func WrapCode(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 4xxxx: 客户端错误(参数错误、业务规则校验失败)
// 5xxxx: 服务端错误(数据库异常、外部服务调用失败)

const (
	// 系统级错误码(50000-50099)
	ErrCodeInternal       = 50000 // 内部错误
	ErrCodeDatabaseError  = 50001 // 数据库错误
	ErrCodeRedisError     = 50002 // Redis错误
	ErrCodePaymentGateway = 50003 // 支付网关不可用
	ErrCodeQueueError     = 50004 // 消息队列错误

	// 认证授权错误(40100-40199)
	ErrCodeUnauthorized     = 40100 // 未登录
	ErrCodeInvalidToken     = 40101 // Token无效
	ErrCodeTokenExpired     = 40102 // Token过期
	ErrCodeInvalidPassword  = 40103 // 密码错误
	ErrCodeForbidden        = 40104 // 无权限
	ErrCodeAccountSuspended = 40105 // 账号已停用

	// 资源错误(40400-40499)
	ErrCodeNotFound       = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound   = 40401 // 用户不存在
	ErrCodeBookNotFound   = 40402 // 图书不存在
	ErrCodeOrderNotFound  = 40403 // 订单不存在
	ErrCodeReviewNotFound = 40404 // 评价不存在

	// 业务规则错误(40000-40099)
	ErrCodeBusinessError      = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock  = 40001 // 库存不足
	ErrCodeInvalidOrderStatus = 40002 // 订单状态非法
	ErrCodeEmailDuplicate     = 40003 // 邮箱已存在
	ErrCodeOrderInProcess     = 40004 // 订单已在处理中,不可取消
	ErrCodeWeakPassword       = 40005 // 密码强度不足
	ErrCodeRefundNotAllowed   = 40006 // 不满足退款条件
	ErrCodeReviewNotAllowed   = 40007 // 未购买不可评价
	ErrCodeCartEmpty          = 40008 // 购物车为空
	ErrCodeDuplicateEntry     = 40009 // 重复记录(通用)
	ErrCodeTooManyRequests    = 40029 // 请求过于频繁

	// 参数错误(40900-40999)
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误
// =========================================

var (
	// 系统错误
	ErrInternal       = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError  = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError     = New(ErrCodeRedisError, "缓存服务错误")
	ErrPaymentGateway = New(ErrCodePaymentGateway, "支付服务暂不可用,请稍后重试")

	// 认证授权
	ErrUnauthorized     = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken     = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired     = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword  = New(ErrCodeInvalidPassword, "密码错误")
	ErrForbidden        = New(ErrCodeForbidden, "无权限访问")
	ErrAccountSuspended = New(ErrCodeAccountSuspended, "账号已被停用,请联系管理员")

	// 资源不存在
	ErrUserNotFound  = New(ErrCodeUserNotFound, "用户不存在")
	ErrBookNotFound  = New(ErrCodeBookNotFound, "图书不存在")
	ErrOrderNotFound = New(ErrCodeOrderNotFound, "订单不存在")

	// 业务规则
	ErrInsufficientStock  = New(ErrCodeInsufficientStock, "库存不足")
	ErrInvalidOrderStatus = New(ErrCodeInvalidOrderStatus, "订单状态不允许此操作")
	ErrEmailDuplicate     = New(ErrCodeEmailDuplicate, "邮箱已被注册")
	ErrWeakPassword       = New(ErrCodeWeakPassword, "密码强度不足(需8-20位,包含字母和数字)")
	ErrTooManyRequests    = New(ErrCodeTooManyRequests, "请求过于频繁,请稍后再试")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError(如果不是AppError则包装成Internal错误)
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// HasCode 判断错误链上是否存在指定错误码的AppError
func HasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
