package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appadmin "github.com/xiebiao/bookstore-orders/internal/application/admin"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// AdminHandler 后台:订单状态、报表视图、客户管理、审计日志
type AdminHandler struct {
	orders *appadmin.OrderAdminUseCase
	views  *appadmin.ViewUseCase
	users  *appadmin.UserAdminUseCase
	audits *appadmin.AuditUseCase
	loc    *time.Location
}

// NewAdminHandler 创建后台处理器
func NewAdminHandler(
	orders *appadmin.OrderAdminUseCase,
	views *appadmin.ViewUseCase,
	users *appadmin.UserAdminUseCase,
	audits *appadmin.AuditUseCase,
) *AdminHandler {
	return &AdminHandler{
		orders: orders,
		views:  views,
		users:  users,
		audits: audits,
		loc:    time.Local,
	}
}

// AdvanceDelivery 推进配送状态
// @Summary      推进配送状态
// @Description  只能按 pending → processing → shipped → delivered 逐级推进
// @Tags         后台-订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                        true "订单ID"
// @Param        request body dto.AdvanceDeliveryRequest false "目标状态"
// @Success      200 {object} response.Response{data=apporder.OrderDTO}
// @Router       /api/v1/admin/orders/{id}/delivery [post]
func (h *AdminHandler) AdvanceDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdvanceDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
	}
	result, err := h.orders.AdvanceDelivery(c.Request.Context(), middleware.GetActor(c), appadmin.AdvanceDeliveryRequest{
		OrderID: id,
		To:      req.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ResolveRefund 处理退款申请
// @Summary      同意或驳回退款
// @Tags         后台-订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                      true "订单ID"
// @Param        request body dto.ResolveRefundRequest true "处理结果"
// @Success      200 {object} response.Response{data=apporder.OrderDTO}
// @Router       /api/v1/admin/orders/{id}/refund [post]
func (h *AdminHandler) ResolveRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.orders.ResolveRefund(c.Request.Context(), middleware.GetActor(c), appadmin.ResolveRefundRequest{
		OrderID: id,
		Approve: *req.Approve,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteRefundRecord 删除已完结的退款记录
// @Summary      删除退款记录
// @Description  只能删除已退款或已驳回的记录
// @Tags         后台-订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/returns/{id} [delete]
func (h *AdminHandler) DeleteRefundRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteRefundRecord(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// InFlight 进行中订单
// @Summary      进行中订单
// @Tags         后台-视图
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]apporder.OrderDTO}
// @Router       /api/v1/admin/orders/in-flight [get]
func (h *AdminHandler) InFlight(c *gin.Context) {
	result, err := h.views.InFlight(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Completed 已完成交易
// @Summary      已完成交易
// @Tags         后台-视图
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]apporder.OrderDTO}
// @Router       /api/v1/admin/orders/completed [get]
func (h *AdminHandler) Completed(c *gin.Context) {
	result, err := h.views.Completed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RefundQueue 待处理退款
// @Summary      退款队列
// @Tags         后台-视图
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]apporder.OrderDTO}
// @Router       /api/v1/admin/refunds [get]
func (h *AdminHandler) RefundQueue(c *gin.Context) {
	result, err := h.views.RefundQueue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Returns 退货记录
// @Summary      退货记录
// @Description  已退款和已驳回的订单,按明细展开
// @Tags         后台-视图
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]appadmin.ReturnRow}
// @Router       /api/v1/admin/returns [get]
func (h *AdminHandler) Returns(c *gin.Context) {
	result, err := h.views.Returns(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SalesReport 销售报表
// @Summary      销售报表
// @Description  默认最近30天,to当天包含在内
// @Tags         后台-视图
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "开始日期" example(2025-01-01)
// @Param        to   query string false "结束日期" example(2025-01-31)
// @Success      200 {object} response.Response{data=appadmin.SalesReport}
// @Router       /api/v1/admin/reports/sales [get]
func (h *AdminHandler) SalesReport(c *gin.Context) {
	var req dto.SalesReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	from, to := req.Range(h.loc)
	result, err := h.views.SalesReport(c.Request.Context(), appadmin.SalesReportRequest{From: from, To: to})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListUsers 客户列表
// @Summary      客户列表
// @Tags         后台-客户
// @Produce      json
// @Security     BearerAuth
// @Param        keyword   query string false "邮箱或昵称"
// @Param        role      query string false "角色" Enums(customer, admin)
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]appuser.UserInfo}}
// @Router       /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var req dto.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.users.ListUsers(c.Request.Context(), appadmin.ListUsersRequest{
		Keyword:  req.Keyword,
		Role:     req.Role,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// SuspendUser 停用账号
// @Summary      停用账号
// @Description  停用后现有会话立即失效,不能停用自己
// @Tags         后台-客户
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "用户ID"
// @Success      200 {object} response.Response{data=appuser.UserInfo}
// @Router       /api/v1/admin/users/{id}/suspend [post]
func (h *AdminHandler) SuspendUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.users.Suspend(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReactivateUser 恢复账号
// @Summary      恢复账号
// @Tags         后台-客户
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "用户ID"
// @Success      200 {object} response.Response{data=appuser.UserInfo}
// @Router       /api/v1/admin/users/{id}/reactivate [post]
func (h *AdminHandler) ReactivateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.users.Reactivate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListAudits 审计日志
// @Summary      审计日志
// @Tags         后台-审计
// @Produce      json
// @Security     BearerAuth
// @Param        action    query string false "操作类型"
// @Param        admin_id  query int    false "管理员ID"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]appadmin.AuditDTO}}
// @Router       /api/v1/admin/audits [get]
func (h *AdminHandler) ListAudits(c *gin.Context) {
	var req dto.ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.audits.Execute(c.Request.Context(), appadmin.ListAuditRequest{
		Action:   req.Action,
		AdminID:  req.AdminID,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}
