package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/payment"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// maxWebhookBody Stripe事件体上限,超出返回413而不是截断后验签
const maxWebhookBody = 512 << 10

// WebhookParser 校验签名并解析网关事件
type WebhookParser interface {
	Parse(payload []byte, sigHeader string) (*payment.WebhookEvent, error)
}

// PaymentHandler 支付回调和回跳
type PaymentHandler struct {
	notifications *apporder.PaymentNotificationUseCase
	parser        WebhookParser
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(notifications *apporder.PaymentNotificationUseCase, parser WebhookParser) *PaymentHandler {
	return &PaymentHandler{notifications: notifications, parser: parser}
}

// Webhook Stripe事件回调
// 网关按HTTP状态码判断是否重试:签名错误返回400,请求体超限返回413,投递失败返回500
// @Summary      Stripe webhook
// @Tags         支付
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "签名"
// @Success      200 {object} response.Response
// @Router       /api/v1/payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		logger.Warn(c, "webhook body too large", zap.Int64("limit", tooLarge.Limit))
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, response.Response{
			Code: apperrors.ErrCodeInvalidParams, Message: "请求体过大",
		})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Code: apperrors.ErrCodeBindError, Message: "读取请求体失败",
		})
		return
	}

	event, err := h.parser.Parse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		appErr := apperrors.GetAppError(err)
		logger.Warn(c, "webhook rejected", zap.Int("code", appErr.Code), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{Code: appErr.Code, Message: appErr.Message})
		return
	}

	queued, err := h.notifications.HandleWebhook(c.Request.Context(), apporder.WebhookNotification{
		EventID:   event.EventID,
		EventType: event.Type,
		SessionID: event.SessionID,
		OrderID:   event.OrderID,
		Outcome:   event.Outcome,
	})
	if err != nil {
		appErr := apperrors.GetAppError(err)
		logger.Error(c, "webhook publish failed", err, zap.String("event_id", event.EventID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{Code: appErr.Code, Message: appErr.Message})
		return
	}
	response.Success(c, gin.H{"received": true, "queued": queued})
}

// Return 用户从支付页回跳
// @Summary      支付回跳
// @Description  向网关核实会话后投递支付确认,返回paid/failed/pending/cancelled;用户取消不改变订单状态
// @Tags         支付
// @Produce      json
// @Param        session_id query string false "Checkout会话ID"
// @Param        cancelled  query bool   false "用户取消"
// @Success      200 {object} response.Response{data=apporder.ReturnResponse}
// @Router       /api/v1/payments/return [get]
func (h *PaymentHandler) Return(c *gin.Context) {
	result, err := h.notifications.HandleReturn(c.Request.Context(), apporder.ReturnRequest{
		SessionID: c.Query("session_id"),
		Cancelled: c.Query("cancelled") == "1" || c.Query("cancelled") == "true",
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
