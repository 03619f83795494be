package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// orderRepository 订单仓储(MySQL)
// Order和OrderItem一起保存,查询时Preload明细
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建订单失败")
	}
	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.findOne(conn(ctx, r.db).Where("id = ?", id))
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	return r.findOne(conn(ctx, r.db).Where("order_no = ?", orderNo))
}

func (r *orderRepository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	if sessionID == "" {
		return nil, order.ErrOrderNotFound
	}
	return r.findOne(conn(ctx, r.db).Where("checkout_session_id = ?", sessionID))
}

// LockByID 锁定订单行,明细随后读取(明细不会在订单之外被修改)
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.findOne(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *orderRepository) findOne(query *gorm.DB) (*order.Order, error) {
	var model OrderModel
	if err := query.Preload("Items").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model)
}

// Update 只写状态、退款和支付会话相关列
// stock_deducted只能通过MarkStockDeducted修改
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	result := conn(ctx, r.db).Model(&OrderModel{ID: o.ID}).Updates(map[string]any{
		"status":              string(o.Status),
		"delivstatus":         string(o.DelivStatus),
		"cod":                 o.COD,
		"checkout_session_id": o.CheckoutSessionID,
		"refund_reason":       o.RefundReason,
		"refund_images":       encodeStrings(o.RefundImages),
		"refund_requested_at": o.RefundRequestedAt,
		"refund_resolved_at":  o.RefundResolvedAt,
		"paid_at":             o.PaidAt,
		"updated_at":          o.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单失败")
	}
	return nil
}

// MarkStockDeducted 条件更新,返回值表示本次是否由false翻转为true
func (r *orderRepository) MarkStockDeducted(ctx context.Context, id uint) (bool, error) {
	result := conn(ctx, r.db).Model(&OrderModel{}).
		Where("id = ? AND stock_deducted = ?", id, false).
		Update("stock_deducted", true)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "标记库存已扣减失败")
	}
	return result.RowsAffected == 1, nil
}

// Delete 删除订单及明细,不在事务中时自行开启事务
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	del := func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&OrderModel{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return order.ErrOrderNotFound
		}
		return nil
	}

	var err error
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		err = del(tx)
	} else {
		err = r.db.WithContext(ctx).Transaction(del)
	}
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return err
		}
		return apperrors.Wrap(err, "删除订单失败")
	}
	return nil
}

func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, filter order.ListFilter) ([]*order.Order, int64, error) {
	query := conn(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID)
	if len(filter.Deliveries) > 0 {
		query = query.Where("delivstatus IN ?", deliveryStrings(filter.Deliveries))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	query = paginate(query.Order("created_at DESC").Order("id DESC"), filter.Page, filter.PageSize)

	orders, err := r.find(query)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListForAdmin(ctx context.Context, filter order.AdminFilter) ([]*order.Order, error) {
	query := conn(ctx, r.db).Model(&OrderModel{})
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if len(filter.Deliveries) > 0 {
		query = query.Where("delivstatus IN ?", deliveryStrings(filter.Deliveries))
	}
	return r.find(query.Order("created_at DESC").Order("id DESC"))
}

func (r *orderRepository) find(query *gorm.DB) ([]*order.Order, error) {
	var models []OrderModel
	if err := query.Preload("Items").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询订单列表失败")
	}
	orders := make([]*order.Order, 0, len(models))
	for i := range models {
		o, err := toOrderEntity(&models[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *orderRepository) HasPaidOrderWithBook(ctx context.Context, userID, bookID uint) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&OrderModel{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.book_id = ?",
			userID, string(order.PaymentPaid), bookID).
		Count(&n).Error
	if err != nil {
		return false, apperrors.Wrap(err, "查询购买记录失败")
	}
	return n > 0, nil
}

func deliveryStrings(statuses []order.DeliveryStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func toOrderModel(o *order.Order) *OrderModel {
	m := &OrderModel{
		ID:                o.ID,
		OrderNo:           o.OrderNo,
		UserID:            o.UserID,
		Subtotal:          o.Subtotal,
		ShippingFee:       o.ShippingFee,
		Total:             o.Total,
		ShipName:          o.Shipping.Name,
		ShipEmail:         o.Shipping.Email,
		ShipPhone:         o.Shipping.Phone,
		ShipUnit:          o.Shipping.Unit,
		ShipStreet:        o.Shipping.Street,
		ShipCity:          o.Shipping.City,
		ShipProvince:      o.Shipping.Province,
		ShipPostal:        o.Shipping.Postal,
		DeliveryMethod:    string(o.DeliveryMethod),
		PaymentMethod:     string(o.PaymentMethod),
		Status:            string(o.Status),
		DelivStatus:       string(o.DelivStatus),
		StockDeducted:     o.StockDeducted,
		COD:               o.COD,
		CheckoutSessionID: o.CheckoutSessionID,
		RefundReason:      o.RefundReason,
		RefundImages:      encodeStrings(o.RefundImages),
		RefundRequestedAt: o.RefundRequestedAt,
		RefundResolvedAt:  o.RefundResolvedAt,
		PaidAt:            o.PaidAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:       item.ID,
			OrderID:  o.ID,
			BookID:   item.BookID,
			Title:    item.Title,
			Author:   item.Author,
			CoverURL: item.CoverURL,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}
	return m
}

// toOrderEntity 状态列在这里解析,未知值直接报错
func toOrderEntity(m *OrderModel) (*order.Order, error) {
	status, err := order.ParsePaymentStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", m.ID, err)
	}
	deliv, err := order.ParseDeliveryStatus(m.DelivStatus)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", m.ID, err)
	}
	images, err := decodeStrings(m.RefundImages)
	if err != nil {
		return nil, apperrors.Wrap(err, "解析退款凭证失败")
	}
	deliveryMethod, _ := order.ParseDeliveryMethod(m.DeliveryMethod)
	paymentMethod, _ := order.ParsePaymentMethod(m.PaymentMethod)

	o := &order.Order{
		ID:          m.ID,
		OrderNo:     m.OrderNo,
		UserID:      m.UserID,
		Subtotal:    m.Subtotal,
		ShippingFee: m.ShippingFee,
		Total:       m.Total,
		Shipping: order.Shipping{
			Name:     m.ShipName,
			Email:    m.ShipEmail,
			Phone:    m.ShipPhone,
			Unit:     m.ShipUnit,
			Street:   m.ShipStreet,
			City:     m.ShipCity,
			Province: m.ShipProvince,
			Postal:   m.ShipPostal,
		},
		DeliveryMethod:    deliveryMethod,
		PaymentMethod:     paymentMethod,
		Status:            status,
		DelivStatus:       deliv,
		StockDeducted:     m.StockDeducted,
		COD:               m.COD,
		CheckoutSessionID: m.CheckoutSessionID,
		RefundReason:      m.RefundReason,
		RefundImages:      images,
		RefundRequestedAt: m.RefundRequestedAt,
		RefundResolvedAt:  m.RefundResolvedAt,
		PaidAt:            m.PaidAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	o.Items = make([]order.OrderItem, len(m.Items))
	for i, item := range m.Items {
		o.Items[i] = order.OrderItem{
			ID:       item.ID,
			OrderID:  item.OrderID,
			BookID:   item.BookID,
			Title:    item.Title,
			Author:   item.Author,
			CoverURL: item.CoverURL,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}
	return o, nil
}
