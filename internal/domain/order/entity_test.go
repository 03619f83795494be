package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShipping() Shipping {
	return Shipping{Name: "张三", Email: "z@example.com", Phone: "13800000000", Street: "长安街1号", City: "北京"}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(NewOrderParams{
		OrderNo:     "BK1",
		UserID:      7,
		Items:       []OrderItem{{BookID: 1, Price: 1000, Quantity: 2}, {BookID: 2, Price: 500, Quantity: 1}},
		ShippingFee: 800,
		Shipping:    testShipping(),
	})
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, int64(2500), o.Subtotal)
	assert.Equal(t, int64(3300), o.Total)
	assert.Equal(t, PaymentInitiated, o.Status)
	assert.Equal(t, DeliveryPending, o.DelivStatus)
	assert.False(t, o.StockDeducted)
	assert.Equal(t, 3, o.ItemCount())
	assert.True(t, o.ContainsBook(2))
	assert.False(t, o.ContainsBook(3))
}

func TestNewOrder_Validation(t *testing.T) {
	_, err := NewOrder(NewOrderParams{Shipping: testShipping()})
	assert.ErrorIs(t, err, ErrInvalidOrderItems)

	_, err = NewOrder(NewOrderParams{Items: []OrderItem{{Quantity: 1}}, Shipping: testShipping()})
	assert.ErrorIs(t, err, ErrBookIDRequired)

	_, err = NewOrder(NewOrderParams{Items: []OrderItem{{BookID: 1, Quantity: 0}}, Shipping: testShipping()})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOrder(NewOrderParams{Items: []OrderItem{{BookID: 1, Quantity: 1}}, Shipping: Shipping{Name: "x"}})
	assert.ErrorIs(t, err, ErrShippingIncomplete)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	o := newTestOrder(t)
	now := time.Now()

	changed, err := o.MarkPaid(now)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, o.PaidAt)

	changed, err = o.MarkPaid(now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *o.PaidAt)
}

func TestPaymentAxisIsTerminal(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.MarkFailed(time.Now())
	require.NoError(t, err)

	_, err = o.MarkPaid(time.Now())
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	cod := newTestOrder(t)
	require.NoError(t, cod.MarkUnpaidCOD(time.Now()))
	assert.True(t, cod.COD)
	assert.Equal(t, PaymentUnpaid, cod.Status)
	assert.ErrorIs(t, cod.MarkUnpaidCOD(time.Now()), ErrInvalidStatusTransition)

	_, err = cod.MarkFailed(time.Now())
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestTransitionDelivery_FullFulfillment(t *testing.T) {
	o := newTestOrder(t)
	now := time.Now()

	for _, to := range []DeliveryStatus{DeliveryProcessing, DeliveryShipped, DeliveryDelivered} {
		require.NoError(t, o.TransitionDelivery(to, now))
	}
	assert.Equal(t, DeliveryDelivered, o.DelivStatus)
	assert.ErrorIs(t, o.TransitionDelivery(DeliveryShipped, now), ErrInvalidStatusTransition)
}

func TestTransitionDelivery_RefundRequiresPaid(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkUnpaidCOD(time.Now()))

	assert.False(t, o.CanTransitionDelivery(DeliveryRefundProcessing))
	assert.ErrorIs(t, o.TransitionDelivery(DeliveryRefundProcessing, time.Now()), ErrRefundNotAllowed)
	assert.True(t, o.CanTransitionDelivery(DeliveryProcessing))
}

func TestFulfillable(t *testing.T) {
	for status, want := range map[PaymentStatus]bool{
		PaymentInitiated: false,
		PaymentFailed:    false,
		PaymentPaid:      true,
		PaymentUnpaid:    true,
	} {
		o := &Order{Status: status}
		assert.Equal(t, want, o.Fulfillable(), status)
	}
}

func TestRefundedCannotReturnToProcessing(t *testing.T) {
	o := newTestOrder(t)
	now := time.Now()
	_, _ = o.MarkPaid(now)
	require.NoError(t, o.RequestRefund("破损", nil, now))
	require.NoError(t, o.ResolveRefund(true, now))

	assert.Equal(t, DeliveryRefunded, o.DelivStatus)
	assert.ErrorIs(t, o.TransitionDelivery(DeliveryProcessing, now), ErrInvalidStatusTransition)
	assert.NotNil(t, o.RefundResolvedAt)
}

func TestRequestRefund(t *testing.T) {
	now := time.Now()

	t.Run("未支付拒绝", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkUnpaidCOD(now))
		assert.ErrorIs(t, o.RequestRefund("damaged", nil, now), ErrRefundNotAllowed)
		assert.Equal(t, DeliveryPending, o.DelivStatus)
	})

	t.Run("原因必填", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.MarkPaid(now)
		assert.ErrorIs(t, o.RequestRefund("  ", nil, now), ErrRefundReasonRequired)
	})

	t.Run("最多3张凭证", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.MarkPaid(now)
		err := o.RequestRefund("damaged", []string{"a", "b", "c", "d"}, now)
		assert.ErrorIs(t, err, ErrTooManyRefundImages)
	})

	t.Run("已送达后申请并被拒绝", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.MarkPaid(now)
		for _, to := range []DeliveryStatus{DeliveryProcessing, DeliveryShipped, DeliveryDelivered} {
			require.NoError(t, o.TransitionDelivery(to, now))
		}
		require.NoError(t, o.RequestRefund("damaged", []string{"https://img/1.jpg", " "}, now))
		assert.Equal(t, DeliveryRefundProcessing, o.DelivStatus)
		assert.Equal(t, []string{"https://img/1.jpg"}, o.RefundImages)
		assert.NotNil(t, o.RefundRequestedAt)

		require.NoError(t, o.ResolveRefund(false, now))
		assert.Equal(t, DeliveryRefundRejected, o.DelivStatus)
		assert.True(t, o.Matches(IsCompletedTransaction))
	})
}

func TestCanCancel(t *testing.T) {
	o := newTestOrder(t)
	assert.True(t, o.CanCancel())
	require.NoError(t, o.TransitionDelivery(DeliveryProcessing, time.Now()))
	assert.False(t, o.CanCancel())
}

func TestGenerateOrderNo(t *testing.T) {
	no := GenerateOrderNo(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
	assert.Len(t, no, 2+14+6)
	assert.Equal(t, "BK20240501123000", no[:16])
}
