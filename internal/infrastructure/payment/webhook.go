package payment

import (
	"encoding/json"
	"strconv"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// 关心的Checkout事件
const (
	EventSessionCompleted          = "checkout.session.completed"
	EventSessionAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventSessionAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventSessionExpired            = "checkout.session.expired"
)

// ErrInvalidSignature webhook签名校验失败
var ErrInvalidSignature = apperrors.New(apperrors.ErrCodeUnauthorized, "webhook签名无效")

// WebhookEvent 从Stripe事件中提取的支付结果
type WebhookEvent struct {
	EventID   string
	Type      string
	SessionID string
	OrderID   uint
	OrderNo   string
	// Outcome 为空表示该事件不需要处理
	Outcome order.PaymentOutcome
}

// WebhookParser 校验签名并解析事件
type WebhookParser struct {
	secret string
}

// NewWebhookParser 创建解析器
func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: secret}
}

// Parse payload必须是原始请求体,sigHeader为Stripe-Signature头
func (p *WebhookParser) Parse(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperrors.WrapCode(err, ErrInvalidSignature.Code, ErrInvalidSignature.Message)
	}

	out := &WebhookEvent{EventID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventSessionCompleted, EventSessionAsyncPaymentOK, EventSessionAsyncPaymentFailed, EventSessionExpired:
	default:
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeBindError, "解析Checkout会话失败")
	}
	out.SessionID = sess.ID
	out.OrderNo = sess.ClientReferenceID
	if id, err := strconv.ParseUint(sess.Metadata["order_id"], 10, 64); err == nil {
		out.OrderID = uint(id)
	}

	switch out.Type {
	case EventSessionCompleted:
		// 延迟到账的支付方式在completed时仍是unpaid,等async事件
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			out.Outcome = order.OutcomePaid
		}
	case EventSessionAsyncPaymentOK:
		out.Outcome = order.OutcomePaid
	case EventSessionAsyncPaymentFailed, EventSessionExpired:
		out.Outcome = order.OutcomeFailed
	}
	return out, nil
}
