package order

import (
	"fmt"
	"strings"
)

// PaymentStatus 支付状态(支付轴)
// initiated → paid | failed | unpaid,三个目标状态在支付轴上都是终态
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated" // 已创建,等待支付
	PaymentPaid      PaymentStatus = "paid"      // 已支付
	PaymentFailed    PaymentStatus = "failed"    // 支付失败/会话过期
	PaymentUnpaid    PaymentStatus = "unpaid"    // 货到付款,未收款
)

// DeliveryStatus 履约状态(配送轴)
type DeliveryStatus string

const (
	DeliveryPending          DeliveryStatus = "pending"
	DeliveryProcessing       DeliveryStatus = "processing"
	DeliveryShipped          DeliveryStatus = "shipped"
	DeliveryDelivered        DeliveryStatus = "delivered"
	DeliveryRefundProcessing DeliveryStatus = "refund-processing"
	DeliveryRefunded         DeliveryStatus = "refunded"
	DeliveryRefundRejected   DeliveryStatus = "refund-rejected"
)

func (s PaymentStatus) String() string  { return string(s) }
func (s DeliveryStatus) String() string { return string(s) }

// ParsePaymentStatus 在存储边界解析支付状态
// 输入去空白并转小写;空值视为initiated;未知值返回错误而不是静默归类
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch PaymentStatus(v) {
	case "":
		return PaymentInitiated, nil
	case PaymentInitiated, PaymentPaid, PaymentFailed, PaymentUnpaid:
		return PaymentStatus(v), nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, raw)
}

// ParseDeliveryStatus 在存储边界解析履约状态,空值视为pending
func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch DeliveryStatus(v) {
	case "":
		return DeliveryPending, nil
	case DeliveryPending, DeliveryProcessing, DeliveryShipped, DeliveryDelivered,
		DeliveryRefundProcessing, DeliveryRefunded, DeliveryRefundRejected:
		return DeliveryStatus(v), nil
	}
	return "", fmt.Errorf("%w: delivery status %q", ErrUnknownStatus, raw)
}

// deliveryTransitions 配送轴合法边,退款相关边另有status==paid的守卫
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:          {DeliveryProcessing, DeliveryRefundProcessing},
	DeliveryProcessing:       {DeliveryShipped, DeliveryRefundProcessing},
	DeliveryShipped:          {DeliveryDelivered, DeliveryRefundProcessing},
	DeliveryDelivered:        {DeliveryRefundProcessing},
	DeliveryRefundProcessing: {DeliveryRefunded, DeliveryRefundRejected},
	DeliveryRefunded:         {},
	DeliveryRefundRejected:   {},
}

// HasDeliveryEdge 配送轴上是否存在from→to的边(不含守卫)
func HasDeliveryEdge(from, to DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal 配送轴终态
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryRefunded || s == DeliveryRefundRejected
}

// RefundTabStatuses "退款"标签页包含的履约状态
func RefundTabStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryRefundProcessing, DeliveryRefunded, DeliveryRefundRejected}
}

// DeliveryMethod 配送方式
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

// ParseDeliveryMethod 解析配送方式,空值视为standard
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	switch DeliveryMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DeliveryStandard:
		return DeliveryStandard, nil
	case DeliveryExpress:
		return DeliveryExpress, nil
	}
	return "", ErrInvalidDeliveryMethod
}

// ParsePaymentMethod 解析支付方式,空值视为online
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PaymentOnline:
		return PaymentOnline, nil
	case PaymentCOD:
		return PaymentCOD, nil
	}
	return "", ErrInvalidPaymentMethod
}
