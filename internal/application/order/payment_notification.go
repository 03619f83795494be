package order

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// 支付确认来源
const (
	SourceWebhook = "webhook"
	SourceReturn  = "return"
)

// 回跳页面展示的结果
const (
	ReturnPaid    = "paid"
	ReturnFailed  = "failed"
	ReturnPending = "pending"
	// ReturnCancelled 用户离开支付页,会话仍可继续支付,订单状态不变
	ReturnCancelled = "cancelled"
)

// PaymentNotificationUseCase 把网关回调和浏览器回跳转换成支付确认任务
// 这里只投递消息,库存扣减和状态变更由worker执行
type PaymentNotificationUseCase struct {
	gateway   order.PaymentGateway
	publisher order.ConfirmationPublisher
}

// NewPaymentNotificationUseCase 创建支付通知用例
func NewPaymentNotificationUseCase(gateway order.PaymentGateway, publisher order.ConfirmationPublisher) *PaymentNotificationUseCase {
	return &PaymentNotificationUseCase{gateway: gateway, publisher: publisher}
}

// WebhookNotification 已验签的网关事件
// Outcome为空表示与支付结果无关的事件
type WebhookNotification struct {
	EventID   string
	EventType string
	SessionID string
	OrderID   uint
	Outcome   order.PaymentOutcome
}

// HandleWebhook 投递webhook对应的支付确认,返回是否投递
func (uc *PaymentNotificationUseCase) HandleWebhook(ctx context.Context, n WebhookNotification) (bool, error) {
	if n.Outcome == "" {
		logger.Debug(ctx, "webhook event ignored",
			zap.String("event_id", n.EventID),
			zap.String("type", n.EventType),
		)
		return false, nil
	}

	err := uc.publisher.PublishConfirmation(ctx, order.PaymentConfirmation{
		OrderID:           n.OrderID,
		CheckoutSessionID: n.SessionID,
		Outcome:           n.Outcome,
		Source:            SourceWebhook,
		EventID:           n.EventID,
		OccurredAt:        time.Now(),
	})
	if err != nil {
		return false, err
	}
	logger.Info(ctx, "payment confirmation queued",
		zap.String("source", SourceWebhook),
		zap.String("event_id", n.EventID),
		zap.String("session_id", n.SessionID),
		zap.String("outcome", string(n.Outcome)),
	)
	return true, nil
}

// ReturnRequest 浏览器从支付页回跳
type ReturnRequest struct {
	SessionID string
	Cancelled bool
}

// ReturnResponse 回跳结果
type ReturnResponse struct {
	SessionID string `json:"session_id"`
	OrderNo   string `json:"order_no"`
	Result    string `json:"result"` // paid | failed | pending | cancelled
}

// HandleReturn 向网关核实会话状态后投递确认
// 只有网关报告已支付或已过期时才投递;用户取消只影响展示,
// 会话过期后由checkout.session.expired把订单置为failed
func (uc *PaymentNotificationUseCase) HandleReturn(ctx context.Context, req ReturnRequest) (*ReturnResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "缺少支付会话ID")
	}

	session, err := uc.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &ReturnResponse{SessionID: sessionID, OrderNo: session.OrderNo}
	var outcome order.PaymentOutcome
	switch {
	case session.Paid:
		outcome, resp.Result = order.OutcomePaid, ReturnPaid
	case session.Expired:
		outcome, resp.Result = order.OutcomeFailed, ReturnFailed
	case req.Cancelled:
		resp.Result = ReturnCancelled
		return resp, nil
	default:
		// 异步支付方式还未到账,等待webhook
		resp.Result = ReturnPending
		return resp, nil
	}

	err = uc.publisher.PublishConfirmation(ctx, order.PaymentConfirmation{
		CheckoutSessionID: sessionID,
		Outcome:           outcome,
		Source:            SourceReturn,
		OccurredAt:        time.Now(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "payment confirmation queued",
		zap.String("source", SourceReturn),
		zap.String("session_id", sessionID),
		zap.String("outcome", string(outcome)),
	)
	return resp, nil
}
