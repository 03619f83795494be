package handler

import (
	"github.com/gin-gonic/gin"

	appcart "github.com/xiebiao/bookstore-orders/internal/application/cart"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// CartHandler 购物车
type CartHandler struct {
	carts *appcart.CartUseCase
}

// NewCartHandler 创建购物车处理器
func NewCartHandler(carts *appcart.CartUseCase) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get 查看购物车
// @Summary      查看购物车
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=appcart.CartDTO}
// @Router       /api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	result, err := h.carts.Get(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Add 加入购物车
// @Summary      加入购物车
// @Description  已在购物车中的图书累加数量,不超过库存
// @Tags         购物车
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddCartItemRequest true "图书和数量"
// @Success      200 {object} response.Response{data=appcart.CartDTO}
// @Router       /api/v1/cart/items [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.carts.Add(c.Request.Context(), middleware.MustGetUserID(c), req.BookID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetQuantity 修改数量
// @Summary      修改购物车数量
// @Tags         购物车
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        book_id path int                        true "图书ID"
// @Param        request body dto.SetCartQuantityRequest true "数量,0表示移除"
// @Success      200 {object} response.Response{data=appcart.CartDTO}
// @Router       /api/v1/cart/items/{book_id} [put]
func (h *CartHandler) SetQuantity(c *gin.Context) {
	bookID, ok := pathID(c, "book_id")
	if !ok {
		return
	}
	var req dto.SetCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.carts.SetQuantity(c.Request.Context(), middleware.MustGetUserID(c), bookID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Remove 移除图书
// @Summary      移除购物车中的图书
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Param        book_id path int true "图书ID"
// @Success      200 {object} response.Response{data=appcart.CartDTO}
// @Router       /api/v1/cart/items/{book_id} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	bookID, ok := pathID(c, "book_id")
	if !ok {
		return
	}
	result, err := h.carts.Remove(c.Request.Context(), middleware.MustGetUserID(c), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Clear 清空购物车
// @Summary      清空购物车
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.MustGetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
