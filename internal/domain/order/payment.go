package order

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -source=payment.go -destination=mock/payment_gateway_mock.go -package=mock

// PaymentOutcome 支付确认结果
type PaymentOutcome string

const (
	OutcomePaid   PaymentOutcome = "paid"
	OutcomeFailed PaymentOutcome = "failed"
)

// ParsePaymentOutcome 解析消息或回调中的结果
func ParsePaymentOutcome(raw string) (PaymentOutcome, error) {
	switch PaymentOutcome(strings.ToLower(strings.TrimSpace(raw))) {
	case OutcomePaid:
		return OutcomePaid, nil
	case OutcomeFailed:
		return OutcomeFailed, nil
	}
	return "", fmt.Errorf("%w: payment outcome %q", ErrUnknownStatus, raw)
}

// CheckoutSessionRequest 创建支付会话的参数
type CheckoutSessionRequest struct {
	OrderID       uint
	OrderNo       string
	UserID        uint
	CustomerEmail string
	Currency      string
	Items         []OrderItem
	ShippingFee   int64
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession 支付会话
type CheckoutSession struct {
	ID  string
	URL string
	// Paid 网关确认已收款
	Paid bool
	// Expired 会话已过期或被放弃
	Expired bool
	OrderNo string
}

// PaymentGateway 支付网关
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	// GetCheckoutSession 回跳页面用会话ID向网关核实支付结果
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// PaymentConfirmation 支付确认任务
// webhook和回跳页面只发布该任务,由worker异步执行库存扣减和状态更新
type PaymentConfirmation struct {
	OrderID           uint           `json:"order_id,omitempty"`
	CheckoutSessionID string         `json:"checkout_session_id,omitempty"`
	Outcome           PaymentOutcome `json:"outcome"`
	Source            string         `json:"source"` // webhook | return
	EventID           string         `json:"event_id,omitempty"`
	OccurredAt        time.Time      `json:"occurred_at"`
}

// ConfirmationPublisher 投递支付确认任务
type ConfirmationPublisher interface {
	PublishConfirmation(ctx context.Context, c PaymentConfirmation) error
}
