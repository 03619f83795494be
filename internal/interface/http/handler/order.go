package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// OrderHandler 买家订单
type OrderHandler struct {
	checkout *apporder.CheckoutUseCase
	cancel   *apporder.CancelOrderUseCase
	refund   *apporder.RequestRefundUseCase
	list     *apporder.ListMyOrdersUseCase
	get      *apporder.GetOrderUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	checkout *apporder.CheckoutUseCase,
	cancel *apporder.CancelOrderUseCase,
	refund *apporder.RequestRefundUseCase,
	list *apporder.ListMyOrdersUseCase,
	get *apporder.GetOrderUseCase,
) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		cancel:   cancel,
		refund:   refund,
		list:     list,
		get:      get,
	}
}

// Checkout 下单
// @Summary      下单
// @Description  在线支付返回Stripe Checkout地址,库存在支付确认后扣减;货到付款立即扣减库存
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "下单信息"
// @Success      200 {object} response.Response{data=apporder.CheckoutResponse}
// @Router       /api/v1/orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items := make([]apporder.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CheckoutItem{BookID: item.BookID, Quantity: item.Quantity}
	}
	s := req.Shipping
	result, err := h.checkout.Execute(c.Request.Context(), apporder.CheckoutRequest{
		UserID: middleware.MustGetUserID(c),
		Items:  items,
		Shipping: apporder.ShippingDTO{
			Name:     s.Name,
			Email:    s.Email,
			Phone:    s.Phone,
			Unit:     s.Unit,
			Street:   s.Street,
			City:     s.City,
			Province: s.Province,
			Postal:   s.Postal,
		},
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListOrders 我的订单
// @Summary      我的订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        tab       query string false "标签页" Enums(all, refund)
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]apporder.OrderDTO}}
// @Router       /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.list.Execute(c.Request.Context(), apporder.ListMyOrdersRequest{
		UserID:   middleware.MustGetUserID(c),
		Tab:      req.Tab,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Orders, result.Total, result.Page, result.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=apporder.OrderDTO}
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.get.Execute(c.Request.Context(), middleware.MustGetUserID(c), id, middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  只有待处理(pending)订单可以取消,已扣减的库存会归还
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/orders/{id} [delete]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.cancel.Execute(c.Request.Context(), apporder.CancelOrderRequest{
		UserID:  middleware.MustGetUserID(c),
		OrderID: id,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RequestRefund 申请退款
// @Summary      申请退款
// @Description  仅已支付订单,原因必填,凭证图片最多3张
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int               true "订单ID"
// @Param        request body dto.RefundRequest true "退款信息"
// @Success      200 {object} response.Response{data=apporder.OrderDTO}
// @Router       /api/v1/orders/{id}/refund [post]
func (h *OrderHandler) RequestRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.refund.Execute(c.Request.Context(), apporder.RequestRefundRequest{
		UserID:  middleware.MustGetUserID(c),
		OrderID: id,
		Reason:  req.Reason,
		Images:  req.Images,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
