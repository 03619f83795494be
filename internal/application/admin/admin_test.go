package admin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-orders/internal/application/admin"
	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/redis"
)

var actor = audit.Actor{ID: 9000, Email: "admin@example.com"}

type fixture struct {
	store    *memory.Store
	sessions *redis.SessionStore

	orders *admin.OrderAdminUseCase
	views  *admin.ViewUseCase
	users  *admin.UserAdminUseCase
	audits *admin.AuditUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	sessions := redis.NewSessionStore(client)
	return &fixture{
		store:    store,
		sessions: sessions,
		orders:   admin.NewOrderAdminUseCase(store.Orders(), store.Audits(), store, order.NewStockReconciler(store, store.Orders(), store.Books())),
		views:    admin.NewViewUseCase(store.Orders(), store.Users(), 30*24*time.Hour),
		users:    admin.NewUserAdminUseCase(store.Users(), store.Audits(), store, sessions),
		audits:   admin.NewAuditUseCase(store.Audits()),
	}
}

type seedOrder struct {
	userID  uint
	status  order.PaymentStatus
	deliv   order.DeliveryStatus
	total   int64
	items   []order.OrderItem
	created time.Time
}

func (f *fixture) addOrder(t *testing.T, s seedOrder) *order.Order {
	t.Helper()
	if s.created.IsZero() {
		s.created = time.Now().Add(-time.Hour)
	}
	if s.items == nil {
		s.items = []order.OrderItem{{BookID: 1, Title: "三体", Price: s.total, Quantity: 1}}
	}
	o := &order.Order{
		OrderNo:     "BK" + s.created.Format("150405.000000"),
		UserID:      s.userID,
		Items:       s.items,
		Total:       s.total,
		Subtotal:    s.total,
		Status:      s.status,
		DelivStatus: s.deliv,
		Shipping:    order.Shipping{Name: "张三", Email: "zhang@example.com"},
		CreatedAt:   s.created,
	}
	require.NoError(t, f.store.Orders().Create(context.Background(), o))
	return o
}

func (f *fixture) auditActions(t *testing.T) []string {
	t.Helper()
	resp, err := f.audits.Execute(context.Background(), admin.ListAuditRequest{})
	require.NoError(t, err)
	out := make([]string, len(resp.List))
	for i, e := range resp.List {
		out[i] = e.Action
	}
	return out
}

func TestAdvanceDelivery_FollowsForwardChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryPending, total: 5900})

	for _, want := range []string{"processing", "shipped", "delivered"} {
		dto, err := f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID})
		require.NoError(t, err)
		assert.Equal(t, want, dto.DelivStatus)
	}

	_, err := f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	assert.Equal(t, []string{"advance_delivery", "advance_delivery", "advance_delivery"}, f.auditActions(t))
}

func TestAdvanceDelivery_PaymentAxis(t *testing.T) {
	tests := []struct {
		name      string
		status    order.PaymentStatus
		deducted  bool
		wantErr   error
		wantStock int
	}{
		{"paid", order.PaymentPaid, true, nil, 5},
		{"paid without deduction", order.PaymentPaid, false, nil, 3},
		{"cod", order.PaymentUnpaid, true, nil, 5},
		{"cod without deduction", order.PaymentUnpaid, false, nil, 3},
		{"initiated", order.PaymentInitiated, false, order.ErrNotFulfillable, 5},
		{"failed", order.PaymentFailed, false, order.ErrNotFulfillable, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			b := &book.Book{Title: "三体", Author: "刘慈欣", Price: 5900, Stock: 5}
			require.NoError(t, f.store.Books().Create(ctx, b))
			o := f.addOrder(t, seedOrder{
				userID: 1,
				status: tt.status,
				deliv:  order.DeliveryPending,
				total:  11800,
				items:  []order.OrderItem{{BookID: b.ID, Title: b.Title, Price: 5900, Quantity: 2}},
			})
			if tt.deducted {
				_, err := f.store.Orders().MarkStockDeducted(ctx, o.ID)
				require.NoError(t, err)
			}

			for range 3 {
				_, err := f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID})
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				} else {
					require.NoError(t, err)
				}
			}

			stored, err := f.store.Orders().FindByID(ctx, o.ID)
			require.NoError(t, err)
			current, err := f.store.Books().FindByID(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, current.Stock)

			report, err := f.views.SalesReport(ctx, admin.SalesReportRequest{})
			require.NoError(t, err)

			if tt.wantErr != nil {
				assert.Equal(t, order.DeliveryPending, stored.DelivStatus)
				assert.False(t, stored.StockDeducted)
				assert.Empty(t, f.auditActions(t))
				assert.Zero(t, report.KPIs.Revenue)
				return
			}
			assert.Equal(t, order.DeliveryDelivered, stored.DelivStatus)
			assert.True(t, stored.StockDeducted)
			assert.Equal(t, int64(11800), report.KPIs.Revenue)
		})
	}
}

func TestAdvanceDelivery_RejectsSkipsAndRefundTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryPending, total: 5900})

	_, err := f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID, To: "shipped"})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	_, err = f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID, To: "refund-processing"})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	_, err = f.orders.AdvanceDelivery(ctx, actor, admin.AdvanceDeliveryRequest{OrderID: o.ID, To: "lost"})
	assert.ErrorIs(t, err, order.ErrUnknownStatus)

	stored, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryPending, stored.DelivStatus)
	assert.Empty(t, f.auditActions(t))
}

func TestResolveRefund(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		want    order.DeliveryStatus
		action  string
	}{
		{"approve", true, order.DeliveryRefunded, "approve_refund"},
		{"reject", false, order.DeliveryRefundRejected, "reject_refund"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			o := f.addOrder(t, seedOrder{userID: 7, status: order.PaymentPaid, deliv: order.DeliveryRefundProcessing, total: 5900})

			dto, err := f.orders.ResolveRefund(ctx, actor, admin.ResolveRefundRequest{OrderID: o.ID, Approve: tt.approve})
			require.NoError(t, err)
			assert.Equal(t, string(tt.want), dto.DelivStatus)

			resp, err := f.audits.Execute(ctx, admin.ListAuditRequest{})
			require.NoError(t, err)
			require.Len(t, resp.List, 1)
			entry := resp.List[0]
			assert.Equal(t, tt.action, entry.Action)
			assert.Equal(t, "refund", entry.TargetResource)
			require.NotNil(t, entry.TargetUserID)
			assert.Equal(t, uint(7), *entry.TargetUserID)
		})
	}
}

func TestResolveRefund_RequiresPendingRefund(t *testing.T) {
	f := newFixture(t)
	o := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryShipped, total: 5900})

	_, err := f.orders.ResolveRefund(context.Background(), actor, admin.ResolveRefundRequest{OrderID: o.ID, Approve: true})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
}

func TestResolveRefund_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefundProcessing, total: 5900})
	boom := errors.New("audit down")
	f.store.FailOn("audits.Append", boom)

	_, err := f.orders.ResolveRefund(ctx, actor, admin.ResolveRefundRequest{OrderID: o.ID, Approve: true})
	assert.ErrorIs(t, err, boom)

	stored, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryRefundProcessing, stored.DelivStatus)
}

func TestDeleteRefundRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	refunded := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefunded, total: 5900})
	pending := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefundProcessing, total: 5900})

	assert.ErrorIs(t, f.orders.DeleteRefundRecord(ctx, actor, pending.ID), order.ErrRefundRecordNotDeletable)
	require.NoError(t, f.orders.DeleteRefundRecord(ctx, actor, refunded.ID))

	_, err := f.store.Orders().FindByID(ctx, refunded.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	resp, err := f.audits.Execute(ctx, admin.ListAuditRequest{Action: "delete_refund_record"})
	require.NoError(t, err)
	require.Len(t, resp.List, 1)
	assert.NotNil(t, resp.List[0].Details.Before)
	assert.Nil(t, resp.List[0].Details.After)
}

func TestViews_ClassifyByStatusPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inflight := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryShipped, total: 100})
	f.addOrder(t, seedOrder{userID: 1, status: order.PaymentFailed, deliv: order.DeliveryPending, total: 100})
	codDelivered := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentUnpaid, deliv: order.DeliveryDelivered, total: 100})
	completed := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefundRejected, total: 100})
	queued := f.addOrder(t, seedOrder{userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefundProcessing, total: 100})
	returned := f.addOrder(t, seedOrder{
		userID: 1, status: order.PaymentPaid, deliv: order.DeliveryRefunded, total: 300,
		items: []order.OrderItem{
			{BookID: 1, Title: "三体", Price: 100, Quantity: 1},
			{BookID: 2, Title: "活着", Price: 100, Quantity: 2},
		},
	})
	o, err := f.store.Orders().FindByID(ctx, returned.ID)
	require.NoError(t, err)
	o.RefundReason = "破损"
	o.RefundImages = []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"}
	require.NoError(t, f.store.Orders().Update(ctx, o))

	got, err := f.views.InFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{inflight.ID}, orderIDs(got))

	got, err = f.views.Completed(ctx)
	require.NoError(t, err)
	// 货到付款送达但未收款不算已完成交易
	assert.Equal(t, []uint{completed.ID}, orderIDs(got))
	assert.NotContains(t, orderIDs(got), codDelivered.ID)

	got, err = f.views.RefundQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{queued.ID}, orderIDs(got))

	rows, err := f.views.Returns(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, returned.ID, r.OrderID)
		assert.Equal(t, "破损", r.Reason)
		assert.Equal(t, "https://img.example.com/1.jpg", r.Image)
	}
}

func TestSalesReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := user.NewUser("alice@example.com", "hash", "Alice")
	require.NoError(t, f.store.Users().Create(ctx, alice))
	bob := user.NewUser("bob@example.com", "hash", "")
	require.NoError(t, f.store.Users().Create(ctx, bob))

	now := time.Now()
	book := func(id uint, qty int, price int64) []order.OrderItem {
		return []order.OrderItem{{BookID: id, Title: "书", Price: price, Quantity: qty}}
	}
	f.addOrder(t, seedOrder{userID: alice.ID, status: order.PaymentPaid, deliv: order.DeliveryPending, total: 3000, items: book(1, 3, 1000), created: now.Add(-3 * time.Hour)})
	f.addOrder(t, seedOrder{userID: alice.ID, status: order.PaymentPaid, deliv: order.DeliveryDelivered, total: 2000, items: book(2, 1, 2000), created: now.Add(-2 * time.Hour)})
	// 货到付款送达计入销售额
	f.addOrder(t, seedOrder{userID: bob.ID, status: order.PaymentUnpaid, deliv: order.DeliveryDelivered, total: 1000, items: book(2, 1, 1000), created: now.Add(-time.Hour)})
	// 不计入:已退款、未支付未送达、区间外
	f.addOrder(t, seedOrder{userID: bob.ID, status: order.PaymentPaid, deliv: order.DeliveryRefunded, total: 9000, items: book(3, 9, 1000), created: now.Add(-time.Hour)})
	f.addOrder(t, seedOrder{userID: bob.ID, status: order.PaymentInitiated, deliv: order.DeliveryPending, total: 9000, items: book(3, 9, 1000), created: now.Add(-time.Hour)})
	f.addOrder(t, seedOrder{userID: bob.ID, status: order.PaymentPaid, deliv: order.DeliveryDelivered, total: 9000, items: book(3, 9, 1000), created: now.Add(-60 * 24 * time.Hour)})

	report, err := f.views.SalesReport(ctx, admin.SalesReportRequest{})
	require.NoError(t, err)

	assert.Equal(t, admin.KPIs{Revenue: 6000, Orders: 3, Items: 5, AverageOrderValue: 2000}, report.KPIs)
	require.Len(t, report.Sales, 3)
	assert.Equal(t, bob.ID, report.Sales[0].UserID, "newest first")

	require.Len(t, report.TopBooks, 2)
	assert.Equal(t, uint(1), report.TopBooks[0].BookID)
	assert.Equal(t, 3, report.TopBooks[0].Quantity)
	assert.Equal(t, 2, report.TopBooks[1].Quantity)

	require.Len(t, report.TopCustomers, 2)
	assert.Equal(t, "Alice", report.TopCustomers[0].Name)
	assert.Equal(t, int64(5000), report.TopCustomers[0].TotalSpent)
	assert.Equal(t, "bob@example.com", report.TopCustomers[1].Name)
	assert.Equal(t, admin.CustomerInsights{Total: 2, New: 1, Returning: 1}, report.Customers)
}

func TestSalesReport_InvalidRange(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	_, err := f.views.SalesReport(context.Background(), admin.SalesReportRequest{From: now, To: now.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestSuspendAndReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := user.NewUser("reader@example.com", "hash", "读者")
	require.NoError(t, f.store.Users().Create(ctx, u))
	require.NoError(t, f.sessions.SaveSession(ctx, u.ID, map[string]any{"ip": "10.0.0.1"}, time.Hour))

	info, err := f.users.Suspend(ctx, actor, u.ID)
	require.NoError(t, err)
	assert.True(t, info.Suspended)

	marked, err := f.sessions.IsSuspended(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, marked)
	_, err = f.sessions.GetSession(ctx, u.ID)
	assert.Error(t, err, "session kicked")

	// 重复停用不再记审计
	_, err = f.users.Suspend(ctx, actor, u.ID)
	require.NoError(t, err)

	info, err = f.users.Reactivate(ctx, actor, u.ID)
	require.NoError(t, err)
	assert.False(t, info.Suspended)
	marked, err = f.sessions.IsSuspended(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	assert.Equal(t, []string{"reactivate_user", "suspend_user"}, f.auditActions(t))
}

func TestSuspend_Self(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Suspend(context.Background(), actor, actor.ID)
	assert.ErrorIs(t, err, user.ErrSuspendSelf)
}

func TestListUsersAndAuditFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@other.com"} {
		require.NoError(t, f.store.Users().Create(ctx, user.NewUser(email, "hash", "")))
	}

	resp, err := f.users.ListUsers(ctx, admin.ListUsersRequest{Keyword: "example"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)

	_, err = f.audits.Execute(ctx, admin.ListAuditRequest{Action: "drop_table"})
	assert.Error(t, err)
}

func orderIDs(list []apporder.OrderDTO) []uint {
	out := make([]uint, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}
