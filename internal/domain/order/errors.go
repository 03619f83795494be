package order

import (
	"errors"

	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrInvalidStatusTransition 状态机中不存在这条边
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单状态不允许此操作")

	// ErrOrderInProcess 只有待处理订单可以取消
	ErrOrderInProcess = apperrors.New(apperrors.ErrCodeOrderInProcess, "订单已在处理中")

	// ErrNotFulfillable 未支付成功的在线订单不能发货
	ErrNotFulfillable = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单未完成支付,不能发货")

	// ErrRefundNotAllowed 只有已支付订单可以申请退款
	ErrRefundNotAllowed = apperrors.New(apperrors.ErrCodeRefundNotAllowed, "仅已支付订单可申请退款")

	ErrRefundReasonRequired = apperrors.New(apperrors.ErrCodeInvalidParams, "请填写退款原因")
	ErrTooManyRefundImages  = apperrors.New(apperrors.ErrCodeInvalidParams, "退款凭证最多3张")

	// ErrNotOwner 订单不属于当前用户
	ErrNotOwner = apperrors.New(apperrors.ErrCodeForbidden, "无权操作此订单")

	ErrInvalidOrderItems     = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")
	ErrBookIDRequired        = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细缺少图书ID")
	ErrInvalidQuantity       = apperrors.New(apperrors.ErrCodeInvalidParams, "购买数量必须大于0")
	ErrInvalidDeliveryMethod = apperrors.New(apperrors.ErrCodeInvalidParams, "配送方式不正确")
	ErrInvalidPaymentMethod  = apperrors.New(apperrors.ErrCodeInvalidParams, "支付方式不正确")
	ErrShippingIncomplete    = apperrors.New(apperrors.ErrCodeInvalidParams, "收货信息不完整")

	// ErrRefundRecordNotDeletable 只有已退款订单可以从退货列表删除
	ErrRefundRecordNotDeletable = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "仅已退款订单可删除退款记录")

	// ErrConcurrentDeduction 持有行锁时条件更新仍未命中,说明存储层未正确加锁
	ErrConcurrentDeduction = apperrors.New(apperrors.ErrCodeDatabaseError, "库存扣减标记更新冲突")
)

// ErrUnknownStatus 存储中出现无法识别的状态值
var ErrUnknownStatus = errors.New("unknown order status")
