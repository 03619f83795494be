package dto

import "time"

// AdvanceDeliveryRequest to为空时推进到下一个状态
type AdvanceDeliveryRequest struct {
	To string `json:"to" binding:"omitempty,oneof=processing shipped delivered" example:"processing"`
}

// ResolveRefundRequest 处理退款
type ResolveRefundRequest struct {
	Approve *bool `json:"approve" binding:"required" example:"true"`
}

// SalesReportRequest 销售报表区间,日期格式2006-01-02,to当天包含在内
type SalesReportRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02" example:"2025-01-01"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02" example:"2025-01-31"`
}

// Range 解析为闭开区间
func (r SalesReportRequest) Range(loc *time.Location) (from, to time.Time) {
	if r.From != "" {
		from, _ = time.ParseInLocation(time.DateOnly, r.From, loc)
	}
	if r.To != "" {
		if t, err := time.ParseInLocation(time.DateOnly, r.To, loc); err == nil {
			to = t.AddDate(0, 0, 1)
		}
	}
	return from, to
}

// ListUsersRequest 客户列表
type ListUsersRequest struct {
	Keyword  string `form:"keyword" binding:"omitempty,max=100"`
	Role     string `form:"role" binding:"omitempty,oneof=customer admin"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListAuditRequest 审计日志
type ListAuditRequest struct {
	Action   string `form:"action" binding:"omitempty,max=50" example:"approve_refund"`
	AdminID  uint   `form:"admin_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
