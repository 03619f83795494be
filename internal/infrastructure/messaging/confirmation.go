// Package messaging 支付确认任务的RabbitMQ适配
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/mq"
)

// publisher mq.Publisher的发布能力
type publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// ConfirmationPublisher 实现order.ConfirmationPublisher
type ConfirmationPublisher struct {
	pub        publisher
	routingKey string
}

var _ order.ConfirmationPublisher = (*ConfirmationPublisher)(nil)

// NewConfirmationPublisher routingKey一般为order.payment.confirmed
func NewConfirmationPublisher(pub publisher, routingKey string) *ConfirmationPublisher {
	return &ConfirmationPublisher{pub: pub, routingKey: routingKey}
}

// PublishConfirmation 投递任务,至少需要订单ID或会话ID之一
func (p *ConfirmationPublisher) PublishConfirmation(ctx context.Context, c order.PaymentConfirmation) error {
	if c.OrderID == 0 && c.CheckoutSessionID == "" {
		return errors.New("支付确认缺少订单ID和会话ID")
	}
	if err := p.pub.Publish(ctx, p.routingKey, c); err != nil {
		return err
	}
	logger.Info(ctx, "payment confirmation queued",
		zap.Uint("order_id", c.OrderID),
		zap.String("session_id", c.CheckoutSessionID),
		zap.String("outcome", string(c.Outcome)),
		zap.String("source", c.Source),
	)
	return nil
}

// ConfirmFunc 执行一次支付确认
type ConfirmFunc func(ctx context.Context, c order.PaymentConfirmation) error

// NewConfirmationHandler 把ConfirmFunc包装成mq.Handler
//
// 消息格式错误、订单不存在、状态不允许属于永久失败,直接丢弃;
// 其他错误(数据库、锁等待超时)重新入队,库存扣减的幂等保证重试安全。
func NewConfirmationHandler(confirm ConfirmFunc) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var c order.PaymentConfirmation
		if err := json.Unmarshal(msg.Body, &c); err != nil {
			return mq.Permanent(fmt.Errorf("解析支付确认失败: %w", err))
		}
		outcome, err := order.ParsePaymentOutcome(string(c.Outcome))
		if err != nil {
			return mq.Permanent(err)
		}
		c.Outcome = outcome
		if c.OrderID == 0 && c.CheckoutSessionID == "" {
			return mq.Permanent(errors.New("支付确认缺少订单ID和会话ID"))
		}

		err = confirm(ctx, c)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return mq.Permanent(err)
		}
		return err
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, order.ErrOrderNotFound) ||
		errors.Is(err, order.ErrInvalidStatusTransition) ||
		errors.Is(err, order.ErrUnknownStatus)
}
