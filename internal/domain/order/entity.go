package order

import (
	"strings"
	"time"
)

// MaxRefundImages 退款凭证图片上限
const MaxRefundImages = 3

// Order 订单实体(聚合根)
// 支付轴(Status)和配送轴(DelivStatus)相互独立,各自有状态机
type Order struct {
	ID      uint
	OrderNo string
	UserID  uint
	Items   []OrderItem

	Subtotal    int64 // 商品金额(分)
	ShippingFee int64 // 运费(分)
	Total       int64 // Subtotal + ShippingFee

	Shipping       Shipping
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod

	Status      PaymentStatus
	DelivStatus DeliveryStatus

	// StockDeducted 库存是否已扣减,false→true只发生一次
	StockDeducted bool
	COD           bool

	CheckoutSessionID string

	RefundReason      string
	RefundImages      []string
	RefundRequestedAt *time.Time
	RefundResolvedAt  *time.Time

	CreatedAt time.Time
	PaidAt    *time.Time
	UpdatedAt time.Time
}

// OrderItem 下单时的图书快照,BookID必填
type OrderItem struct {
	ID       uint
	OrderID  uint
	BookID   uint
	Title    string
	Author   string
	CoverURL string
	Price    int64
	Quantity int
}

// LineTotal 明细金额
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Shipping 收货信息
type Shipping struct {
	Name     string
	Email    string
	Phone    string
	Unit     string
	Street   string
	City     string
	Province string
	Postal   string
}

// Validate 姓名、邮箱、电话、街道、城市为必填
func (s Shipping) Validate() error {
	for _, v := range []string{s.Name, s.Email, s.Phone, s.Street, s.City} {
		if strings.TrimSpace(v) == "" {
			return ErrShippingIncomplete
		}
	}
	return nil
}

// NewOrderParams 创建订单参数
type NewOrderParams struct {
	OrderNo        string
	UserID         uint
	Items          []OrderItem
	ShippingFee    int64
	Shipping       Shipping
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
}

// NewOrder 创建订单(工厂方法)
// 初始状态:initiated / pending,金额由明细计算
func NewOrder(p NewOrderParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrInvalidOrderItems
	}
	for _, item := range p.Items {
		if item.BookID == 0 {
			return nil, ErrBookIDRequired
		}
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	if err := p.Shipping.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	o := &Order{
		OrderNo:        p.OrderNo,
		UserID:         p.UserID,
		Items:          p.Items,
		ShippingFee:    p.ShippingFee,
		Shipping:       p.Shipping,
		DeliveryMethod: p.DeliveryMethod,
		PaymentMethod:  p.PaymentMethod,
		Status:         PaymentInitiated,
		DelivStatus:    DeliveryPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.Subtotal = o.CalculateSubtotal()
	o.Total = o.Subtotal + o.ShippingFee
	return o, nil
}

// CalculateSubtotal 按明细计算商品金额
func (o *Order) CalculateSubtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

// ItemCount 商品件数
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// IsOwnedBy 订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// ContainsBook 订单中是否包含指定图书
func (o *Order) ContainsBook(bookID uint) bool {
	for _, item := range o.Items {
		if item.BookID == bookID {
			return true
		}
	}
	return false
}

// ===== 支付轴 =====

// MarkPaid initiated → paid
// 已是paid时返回changed=false,重复的支付确认被吸收
func (o *Order) MarkPaid(now time.Time) (changed bool, err error) {
	switch o.Status {
	case PaymentPaid:
		return false, nil
	case PaymentInitiated:
		o.Status = PaymentPaid
		o.PaidAt = &now
		o.UpdatedAt = now
		return true, nil
	default:
		return false, ErrInvalidStatusTransition
	}
}

// MarkFailed initiated → failed,重复调用无副作用
func (o *Order) MarkFailed(now time.Time) (changed bool, err error) {
	switch o.Status {
	case PaymentFailed:
		return false, nil
	case PaymentInitiated:
		o.Status = PaymentFailed
		o.UpdatedAt = now
		return true, nil
	default:
		return false, ErrInvalidStatusTransition
	}
}

// MarkUnpaidCOD initiated → unpaid(货到付款)
func (o *Order) MarkUnpaidCOD(now time.Time) error {
	if o.Status != PaymentInitiated {
		return ErrInvalidStatusTransition
	}
	o.Status = PaymentUnpaid
	o.COD = true
	o.UpdatedAt = now
	return nil
}

// ===== 配送轴 =====

// CanTransitionDelivery 检查边和守卫:进入refund-processing要求已支付
func (o *Order) CanTransitionDelivery(to DeliveryStatus) bool {
	return o.checkDelivery(to) == nil
}

func (o *Order) checkDelivery(to DeliveryStatus) error {
	if !HasDeliveryEdge(o.DelivStatus, to) {
		return ErrInvalidStatusTransition
	}
	if to == DeliveryRefundProcessing && o.Status != PaymentPaid {
		return ErrRefundNotAllowed
	}
	return nil
}

// TransitionDelivery 沿合法边推进配送状态
func (o *Order) TransitionDelivery(to DeliveryStatus, now time.Time) error {
	if err := o.checkDelivery(to); err != nil {
		return err
	}
	o.DelivStatus = to
	o.UpdatedAt = now
	return nil
}

// Fulfillable 已支付或货到付款的订单才能进入履约
func (o *Order) Fulfillable() bool {
	return o.Status == PaymentPaid || o.Status == PaymentUnpaid
}

// CanCancel 只有配送状态恰好为pending时可以取消
func (o *Order) CanCancel() bool {
	return o.DelivStatus == DeliveryPending
}

// RequestRefund 申请退款:仅已支付订单,原因必填,凭证最多3张
func (o *Order) RequestRefund(reason string, images []string, now time.Time) error {
	if o.Status != PaymentPaid {
		return ErrRefundNotAllowed
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRefundReasonRequired
	}
	cleaned := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			cleaned = append(cleaned, img)
		}
	}
	if len(cleaned) > MaxRefundImages {
		return ErrTooManyRefundImages
	}
	if err := o.TransitionDelivery(DeliveryRefundProcessing, now); err != nil {
		return err
	}
	o.RefundReason = reason
	o.RefundImages = cleaned
	o.RefundRequestedAt = &now
	return nil
}

// ResolveRefund 管理员处理退款:approve → refunded,否则 → refund-rejected
func (o *Order) ResolveRefund(approve bool, now time.Time) error {
	to := DeliveryRefundRejected
	if approve {
		to = DeliveryRefunded
	}
	if err := o.TransitionDelivery(to, now); err != nil {
		return err
	}
	o.RefundResolvedAt = &now
	return nil
}

// Snapshot 审计日志使用的订单快照
func (o *Order) Snapshot() map[string]any {
	return map[string]any{
		"order_no":       o.OrderNo,
		"user_id":        o.UserID,
		"total":          o.Total,
		"status":         o.Status,
		"delivstatus":    o.DelivStatus,
		"stock_deducted": o.StockDeducted,
		"refund_reason":  o.RefundReason,
		"refund_images":  o.RefundImages,
	}
}
