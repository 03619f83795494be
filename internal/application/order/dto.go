package order

import (
	"fmt"
	"time"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
)

const (
	tracerName = "bookstore/application/order"
	timeLayout = "2006-01-02 15:04:05"
)

// OrderDTO 订单详情(买家和后台共用)
type OrderDTO struct {
	ID             uint           `json:"id"`
	OrderNo        string         `json:"order_no"`
	UserID         uint           `json:"user_id"`
	Items          []OrderItemDTO `json:"items"`
	Subtotal       int64          `json:"subtotal"`
	ShippingFee    int64          `json:"shipping_fee"`
	Total          int64          `json:"total"`
	TotalYuan      string         `json:"total_yuan"`
	Shipping       ShippingDTO    `json:"shipping"`
	DeliveryMethod string         `json:"delivery_method"`
	PaymentMethod  string         `json:"payment_method"`
	Status         string         `json:"status"`
	DelivStatus    string         `json:"delivstatus"`
	StockDeducted  bool           `json:"stock_deducted"`
	CanCancel      bool           `json:"can_cancel"`
	RefundReason   string         `json:"refund_reason,omitempty"`
	RefundImages   []string       `json:"refund_images,omitempty"`
	CreatedAt      string         `json:"created_at"`
	PaidAt         string         `json:"paid_at,omitempty"`
}

// OrderItemDTO 订单明细
type OrderItemDTO struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	CoverURL  string `json:"cover"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"qty"`
	LineTotal int64  `json:"line_total"`
}

// ShippingDTO 收货信息
type ShippingDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Unit     string `json:"unit,omitempty"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Postal   string `json:"postal,omitempty"`
}

// ToShipping DTO → 领域值对象
func (s ShippingDTO) ToShipping() order.Shipping {
	return order.Shipping{
		Name:     s.Name,
		Email:    s.Email,
		Phone:    s.Phone,
		Unit:     s.Unit,
		Street:   s.Street,
		City:     s.City,
		Province: s.Province,
		Postal:   s.Postal,
	}
}

// NewOrderDTO 领域实体 → DTO
func NewOrderDTO(o *order.Order) OrderDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemDTO{
			BookID:    item.BookID,
			Title:     item.Title,
			Author:    item.Author,
			CoverURL:  item.CoverURL,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
	}
	return OrderDTO{
		ID:          o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Items:       items,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		TotalYuan:   FormatPrice(o.Total),
		Shipping: ShippingDTO{
			Name:     o.Shipping.Name,
			Email:    o.Shipping.Email,
			Phone:    o.Shipping.Phone,
			Unit:     o.Shipping.Unit,
			Street:   o.Shipping.Street,
			City:     o.Shipping.City,
			Province: o.Shipping.Province,
			Postal:   o.Shipping.Postal,
		},
		DeliveryMethod: string(o.DeliveryMethod),
		PaymentMethod:  string(o.PaymentMethod),
		Status:         o.Status.String(),
		DelivStatus:    o.DelivStatus.String(),
		StockDeducted:  o.StockDeducted,
		CanCancel:      o.CanCancel(),
		RefundReason:   o.RefundReason,
		RefundImages:   o.RefundImages,
		CreatedAt:      o.CreatedAt.Format(timeLayout),
		PaidAt:         formatTime(o.PaidAt),
	}
}

// FormatPrice 格式化价格(分→元)
func FormatPrice(priceFen int64) string {
	return fmt.Sprintf("%.2f", float64(priceFen)/100.0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
