package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/order/mock"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/memory"
)

type fixture struct {
	store   *memory.Store
	gateway *mock.MockPaymentGateway
	userID  uint

	checkout *apporder.CheckoutUseCase
	confirm  *apporder.ConfirmPaymentUseCase
	cancel   *apporder.CancelOrderUseCase
	refund   *apporder.RequestRefundUseCase
	list     *apporder.ListMyOrdersUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	reconciler := order.NewStockReconciler(store, store.Orders(), store.Books())

	u := user.NewUser("reader@example.com", "hash", "读者")
	require.NoError(t, store.Users().Create(context.Background(), u))

	f := &fixture{
		store:   store,
		gateway: mock.NewMockPaymentGateway(ctrl),
		userID:  u.ID,
	}
	f.checkout = apporder.NewCheckoutUseCase(store.Orders(), store.Books(), store.Carts(), store, reconciler, f.gateway,
		apporder.CheckoutOptions{
			Currency:            "cny",
			StandardShippingFee: 800,
			ExpressShippingFee:  1800,
			SuccessURL:          "http://localhost/ok",
			CancelURL:           "http://localhost/cancel",
			Timeout:             5 * time.Second,
		})
	f.confirm = apporder.NewConfirmPaymentUseCase(store.Orders(), store.Users(), store.Carts(), store, reconciler)
	f.cancel = apporder.NewCancelOrderUseCase(store.Orders(), store.Books(), store)
	f.refund = apporder.NewRequestRefundUseCase(store.Orders(), store)
	f.list = apporder.NewListMyOrdersUseCase(store.Orders())
	return f
}

func (f *fixture) addBook(t *testing.T, title string, price int64, stock int) uint {
	t.Helper()
	b := &book.Book{Title: title, Author: "刘慈欣", Price: price, Stock: stock}
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b.ID
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	b, err := f.store.Books().FindByID(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func (f *fixture) fillCart(t *testing.T, bookID uint, qty int) {
	t.Helper()
	c := &cart.Cart{UserID: f.userID}
	require.NoError(t, c.Add(cart.Item{BookID: bookID, Quantity: qty, Price: 1}))
	require.NoError(t, f.store.Carts().Save(context.Background(), c))
}

func (f *fixture) order(t *testing.T, id uint) *order.Order {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func shipping() apporder.ShippingDTO {
	return apporder.ShippingDTO{
		Name:   "张三",
		Email:  "reader@example.com",
		Phone:  "13800000000",
		Street: "中关村大街1号",
		City:   "北京",
	}
}

func (f *fixture) checkoutOnline(t *testing.T, bookID uint, qty int, sessionID string) *apporder.CheckoutResponse {
	t.Helper()
	f.gateway.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		Return(&order.CheckoutSession{ID: sessionID, URL: "https://checkout.stripe.test/" + sessionID}, nil)

	resp, err := f.checkout.Execute(context.Background(), apporder.CheckoutRequest{
		UserID:   f.userID,
		Items:    []apporder.CheckoutItem{{BookID: bookID, Quantity: qty}},
		Shipping: shipping(),
	})
	require.NoError(t, err)
	return resp
}

func TestCheckout_OnlineCreatesSessionFromCart(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "三体", 5900, 5)
	f.fillCart(t, bookID, 2)

	var captured order.CheckoutSessionRequest
	f.gateway.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req order.CheckoutSessionRequest) (*order.CheckoutSession, error) {
			captured = req
			return &order.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
		})

	resp, err := f.checkout.Execute(context.Background(), apporder.CheckoutRequest{
		UserID:         f.userID,
		Shipping:       shipping(),
		DeliveryMethod: "express",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", resp.CheckoutURL)
	assert.Equal(t, "initiated", resp.Status)
	assert.Equal(t, int64(2*5900+1800), resp.Total)

	// 明细使用图书当前价格,而不是购物车里的快照
	assert.Equal(t, int64(5900), captured.Items[0].Price)
	assert.Equal(t, resp.OrderNo, captured.OrderNo)
	assert.Equal(t, "reader@example.com", captured.CustomerEmail)
	assert.Equal(t, int64(1800), captured.ShippingFee)

	o := f.order(t, resp.OrderID)
	assert.Equal(t, "cs_1", o.CheckoutSessionID)
	assert.False(t, o.StockDeducted)
	assert.Equal(t, 5, f.stock(t, bookID), "在线支付在确认前不扣库存")
}

func TestCheckout_GatewayFailureLeavesOrderFailed(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "三体", 5900, 5)

	f.gateway.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("stripe unavailable"))

	_, err := f.checkout.Execute(context.Background(), apporder.CheckoutRequest{
		UserID:   f.userID,
		Items:    []apporder.CheckoutItem{{BookID: bookID, Quantity: 1}},
		Shipping: shipping(),
	})
	require.Error(t, err)

	list, err := f.list.Execute(context.Background(), apporder.ListMyOrdersRequest{UserID: f.userID})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "failed", list.Orders[0].Status)
	assert.Equal(t, 5, f.stock(t, bookID))
}

func TestCheckout_CODDeductsAtPlacement(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "球状闪电", 4500, 3)
	f.fillCart(t, bookID, 2)

	resp, err := f.checkout.Execute(context.Background(), apporder.CheckoutRequest{
		UserID:        f.userID,
		Shipping:      shipping(),
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.CheckoutURL)
	assert.Equal(t, "unpaid", resp.Status)
	assert.Equal(t, "pending", resp.DelivStatus)
	assert.Equal(t, 1, f.stock(t, bookID))

	o := f.order(t, resp.OrderID)
	assert.True(t, o.StockDeducted)
	assert.True(t, o.COD)

	c, err := f.store.Carts().Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	// 待处理状态下仍可取消,库存归还
	require.NoError(t, f.cancel.Execute(context.Background(), apporder.CancelOrderRequest{UserID: f.userID, OrderID: resp.OrderID}))
	assert.Equal(t, 3, f.stock(t, bookID))
	_, err = f.store.Orders().FindByID(context.Background(), resp.OrderID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "三体", 5900, 5)

	tests := []struct {
		name string
		req  apporder.CheckoutRequest
		want error
	}{
		{
			name: "购物车为空",
			req:  apporder.CheckoutRequest{UserID: f.userID, Shipping: shipping()},
			want: cart.ErrCartEmpty,
		},
		{
			name: "未知配送方式",
			req:  apporder.CheckoutRequest{UserID: f.userID, Shipping: shipping(), DeliveryMethod: "drone"},
			want: order.ErrInvalidDeliveryMethod,
		},
		{
			name: "收货信息不完整",
			req: apporder.CheckoutRequest{
				UserID: f.userID,
				Items:  []apporder.CheckoutItem{{BookID: bookID, Quantity: 1}},
			},
			want: order.ErrShippingIncomplete,
		},
		{
			name: "图书不存在",
			req: apporder.CheckoutRequest{
				UserID:   f.userID,
				Items:    []apporder.CheckoutItem{{BookID: 9999, Quantity: 1}},
				Shipping: shipping(),
			},
			want: book.ErrBookNotFound,
		},
		{
			name: "数量为0",
			req: apporder.CheckoutRequest{
				UserID:   f.userID,
				Items:    []apporder.CheckoutItem{{BookID: bookID, Quantity: 0}},
				Shipping: shipping(),
			},
			want: order.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.checkout.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfirmPayment_PaidDeductsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	f.fillCart(t, bookID, 1)
	resp := f.checkoutOnline(t, bookID, 1, "cs_paid")

	got, err := f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{
		CheckoutSessionID: "cs_paid",
		Outcome:           order.OutcomePaid,
	})
	require.NoError(t, err)
	assert.True(t, got.Changed)
	assert.Equal(t, 4, f.stock(t, bookID))

	o := f.order(t, resp.OrderID)
	assert.Equal(t, order.PaymentPaid, o.Status)
	assert.Equal(t, order.DeliveryPending, o.DelivStatus)
	assert.True(t, o.StockDeducted)
	require.NotNil(t, o.PaidAt)

	u, err := f.store.Users().FindByID(ctx, f.userID)
	require.NoError(t, err)
	require.NotNil(t, u.LastOrderID)
	assert.Equal(t, resp.OrderID, *u.LastOrderID)

	c, err := f.store.Carts().Get(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	// webhook和回跳页面都会确认一次
	got, err = f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{
		OrderID: resp.OrderID,
		Outcome: order.OutcomePaid,
	})
	require.NoError(t, err)
	assert.False(t, got.Changed)
	assert.Equal(t, 4, f.stock(t, bookID))
}

func TestConfirmPayment_PaidAfterFailedRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 1, "cs_expired")

	got, err := f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: order.OutcomeFailed})
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)

	_, err = f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: order.OutcomePaid})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	assert.Equal(t, 5, f.stock(t, bookID))
	assert.False(t, f.order(t, resp.OrderID).StockDeducted)
}

func TestConfirmPayment_StorageFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 1, "cs_retry")

	f.store.FailOn("orders.Update", errors.New("deadlock"))
	_, err := f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: order.OutcomePaid})
	require.Error(t, err)
	assert.Equal(t, 5, f.stock(t, bookID))
	assert.Equal(t, order.PaymentInitiated, f.order(t, resp.OrderID).Status)

	// 重试成功
	f.store.FailOn("orders.Update", nil)
	_, err = f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: order.OutcomePaid})
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, bookID))
}

func TestConfirmPayment_UnknownInputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{CheckoutSessionID: "cs_missing", Outcome: order.OutcomePaid})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 1, "cs_x")
	_, err = f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: "refunded"})
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestCancelOrder_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 1, "cs_cancel")

	err := f.cancel.Execute(ctx, apporder.CancelOrderRequest{UserID: f.userID + 100, OrderID: resp.OrderID})
	assert.ErrorIs(t, err, order.ErrNotOwner)

	o := f.order(t, resp.OrderID)
	require.NoError(t, o.TransitionDelivery(order.DeliveryProcessing, time.Now()))
	require.NoError(t, f.store.Orders().Update(ctx, o))

	err = f.cancel.Execute(ctx, apporder.CancelOrderRequest{UserID: f.userID, OrderID: resp.OrderID})
	assert.ErrorIs(t, err, order.ErrOrderInProcess)
	f.order(t, resp.OrderID)
}

func TestCancelOrder_UndeductedOrderLeavesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 2, "cs_unpaid")

	require.NoError(t, f.cancel.Execute(ctx, apporder.CancelOrderRequest{UserID: f.userID, OrderID: resp.OrderID}))
	assert.Equal(t, 5, f.stock(t, bookID))
}

func TestRequestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5900, 5)
	resp := f.checkoutOnline(t, bookID, 1, "cs_refund")

	req := apporder.RequestRefundRequest{UserID: f.userID, OrderID: resp.OrderID, Reason: "书页破损", Images: []string{"a.png"}}
	_, err := f.refund.Execute(ctx, req)
	assert.ErrorIs(t, err, order.ErrRefundNotAllowed)

	_, err = f.confirm.Execute(ctx, apporder.ConfirmPaymentRequest{OrderID: resp.OrderID, Outcome: order.OutcomePaid})
	require.NoError(t, err)

	dto, err := f.refund.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "refund-processing", dto.DelivStatus)
	assert.Equal(t, []string{"a.png"}, dto.RefundImages)

	list, err := f.list.Execute(ctx, apporder.ListMyOrdersRequest{UserID: f.userID, Tab: apporder.TabRefund})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, resp.OrderID, list.Orders[0].ID)

	_, err = f.list.Execute(ctx, apporder.ListMyOrdersRequest{UserID: f.userID, Tab: "archived"})
	assert.Error(t, err)
}
