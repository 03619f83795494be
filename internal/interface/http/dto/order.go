package dto

// CheckoutRequest 下单请求
// items为空时使用购物车
type CheckoutRequest struct {
	Items          []CheckoutItem  `json:"items" binding:"omitempty,dive"`
	Shipping       ShippingRequest `json:"shipping" binding:"required"`
	DeliveryMethod string          `json:"delivery_method" binding:"omitempty,oneof=standard express" example:"standard"`
	PaymentMethod  string          `json:"payment_method" binding:"omitempty,oneof=online cod" example:"online"`
}

// CheckoutItem 下单明细
type CheckoutItem struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"qty" binding:"required,min=1,max=999" example:"2"`
}

// ShippingRequest 收货信息
type ShippingRequest struct {
	Name     string `json:"name" binding:"required,max=50" example:"张三"`
	Email    string `json:"email" binding:"required,email" example:"zhang@example.com"`
	Phone    string `json:"phone" binding:"required,max=30" example:"13800000000"`
	Unit     string `json:"unit" binding:"max=100"`
	Street   string `json:"street" binding:"required,max=200" example:"人民路1号"`
	City     string `json:"city" binding:"required,max=50" example:"上海"`
	Province string `json:"province" binding:"max=50"`
	Postal   string `json:"postal" binding:"max=20"`
}

// RefundRequest 申请退款
type RefundRequest struct {
	Reason string   `json:"reason" binding:"required,max=500" example:"收到的书有破损"`
	Images []string `json:"images" binding:"max=3,dive,url"`
}

// ListOrdersRequest 我的订单
type ListOrdersRequest struct {
	Tab      string `form:"tab" binding:"omitempty,oneof=all refund" example:"all"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
