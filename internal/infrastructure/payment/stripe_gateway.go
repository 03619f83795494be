// Package payment Stripe Checkout网关
//
// 所有对Stripe的调用都经过熔断器;4xx类错误(参数错误、卡被拒)属于业务失败,不计入熔断统计。
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

const breakerName = "stripe"

// sessionAPI checkout/session.Client的子集,测试时替换
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway 实现order.PaymentGateway
type StripeGateway struct {
	sessions sessionAPI
	breaker  *circuitbreaker.CircuitBreaker
}

var _ order.PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway 使用配置中的密钥和熔断参数创建网关
func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	return newStripeGateway(&session.Client{B: backend, Key: cfg.StripeSecretKey}, NewBreaker(cfg))
}

func newStripeGateway(api sessionAPI, breaker *circuitbreaker.CircuitBreaker) *StripeGateway {
	return &StripeGateway{sessions: api, breaker: breaker}
}

// NewBreaker 支付网关熔断器
func NewBreaker(cfg config.PaymentConfig) *circuitbreaker.CircuitBreaker {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cb := circuitbreaker.NewCircuitBreaker(breakerName, circuitbreaker.Config{
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(c circuitbreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: isGatewayHealthy,
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		logger.Log.Warn("支付网关熔断状态变化",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return cb
}

// isGatewayHealthy 只有网络错误、超时和5xx才算网关故障
func isGatewayHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode > 0 && se.HTTPStatusCode < http.StatusInternalServerError &&
			se.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}

// CreateCheckoutSession 为订单创建Stripe Checkout会话
// 幂等键为订单号,saga重试不会产生第二个会话
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req order.CheckoutSessionRequest) (*order.CheckoutSession, error) {
	params := buildSessionParams(req)
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderNo)

	var sess *stripe.CheckoutSession
	err := g.breaker.ExecuteContext(ctx, func(context.Context) error {
		var err error
		sess, err = g.sessions.New(params)
		return err
	})
	if err != nil {
		return nil, gatewayError(err, "创建支付会话失败")
	}

	logger.Info(ctx, "checkout session created",
		zap.String("order_no", req.OrderNo),
		zap.String("session_id", sess.ID),
	)
	return toCheckoutSession(sess), nil
}

// GetCheckoutSession 查询会话状态
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*order.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	var sess *stripe.CheckoutSession
	err := g.breaker.ExecuteContext(ctx, func(context.Context) error {
		var err error
		sess, err = g.sessions.Get(sessionID, params)
		return err
	})
	if err != nil {
		return nil, gatewayError(err, "查询支付会话失败")
	}
	return toCheckoutSession(sess), nil
}

func buildSessionParams(req order.CheckoutSessionRequest) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items)+1)
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(item.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
					Metadata: map[string]string{
						"book_id": strconv.FormatUint(uint64(item.BookID), 10),
					},
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	if req.ShippingFee > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(req.ShippingFee),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String("运费")},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderNo),
		LineItems:         lineItems,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", strconv.FormatUint(uint64(req.OrderID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(req.UserID), 10))
	return params
}

func toCheckoutSession(s *stripe.CheckoutSession) *order.CheckoutSession {
	return &order.CheckoutSession{
		ID:      s.ID,
		URL:     s.URL,
		Paid:    s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Expired: s.Status == stripe.CheckoutSessionStatusExpired,
		OrderNo: s.ClientReferenceID,
	}
}

// gatewayError 熔断打开时提示稍后重试,其余错误统一包装为支付网关错误
func gatewayError(err error, msg string) error {
	if errors.Is(err, circuitbreaker.ErrOpenState) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return apperrors.WrapCode(err, apperrors.ErrCodePaymentGateway, apperrors.ErrPaymentGateway.Message)
	}
	return apperrors.WrapCode(err, apperrors.ErrCodePaymentGateway, fmt.Sprintf("%s: %v", msg, stripeMessage(err)))
}

func stripeMessage(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return "网络异常"
}
