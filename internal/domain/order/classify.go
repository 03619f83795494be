package order

// 后台视图分类,只依赖(Status, DelivStatus),每次读取时重新计算
// 各视图的判定条件刻意保持不同,不要合并

// IsInFlight 进行中:待处理/处理中/已发货,且支付未失败
func IsInFlight(s PaymentStatus, d DeliveryStatus) bool {
	if s == PaymentFailed {
		return false
	}
	return d == DeliveryPending || d == DeliveryProcessing || d == DeliveryShipped
}

// IsCompletedTransaction 已完成交易:已支付且(已送达或退款被拒),不含已退款
func IsCompletedTransaction(s PaymentStatus, d DeliveryStatus) bool {
	return s == PaymentPaid && (d == DeliveryDelivered || d == DeliveryRefundRejected)
}

// IsSalesRevenue 计入销售额:已支付或已送达(货到付款送达后计入),不含已退款
func IsSalesRevenue(s PaymentStatus, d DeliveryStatus) bool {
	if d == DeliveryRefunded {
		return false
	}
	return s == PaymentPaid || d == DeliveryDelivered
}

// IsRefundQueue 待处理退款
func IsRefundQueue(_ PaymentStatus, d DeliveryStatus) bool {
	return d == DeliveryRefundProcessing
}

// IsReturned 已退款
func IsReturned(_ PaymentStatus, d DeliveryStatus) bool {
	return d == DeliveryRefunded
}

// Predicate 订单分类判定
type Predicate func(PaymentStatus, DeliveryStatus) bool

// Matches 用判定函数检查订单
func (o *Order) Matches(p Predicate) bool {
	return p(o.Status, o.DelivStatus)
}

// Filter 返回满足判定的订单,保持原顺序
func Filter(orders []*Order, p Predicate) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if o.Matches(p) {
			out = append(out, o)
		}
	}
	return out
}
