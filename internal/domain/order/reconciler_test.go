package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/memory"
)

type fixture struct {
	store      *memory.Store
	books      *memory.BookRepository
	orders     *memory.OrderRepository
	reconciler *order.StockReconciler
}

func newFixture() *fixture {
	store := memory.NewStore()
	f := &fixture{store: store, books: store.Books(), orders: store.Orders()}
	f.reconciler = order.NewStockReconciler(store, f.orders, f.books)
	return f
}

func (f *fixture) addBook(t *testing.T, title string, stock int) uint {
	t.Helper()
	b := &book.Book{Title: title, Author: "a", Price: 1000, Stock: stock}
	require.NoError(t, f.books.Create(context.Background(), b))
	return b.ID
}

func (f *fixture) addOrder(t *testing.T, items ...order.OrderItem) uint {
	t.Helper()
	o := &order.Order{
		UserID:      1,
		Items:       items,
		Status:      order.PaymentInitiated,
		DelivStatus: order.DeliveryPending,
	}
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o.ID
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	b, err := f.books.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func TestDeduct_DecrementsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bookID := f.addBook(t, "三体", 5)
	orderID := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 1})

	res, err := f.reconciler.Deduct(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.DeductResult{Deducted: 1}, res)
	assert.Equal(t, 4, f.stock(t, bookID))

	o, err := f.orders.FindByID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, o.StockDeducted)

	res, err = f.reconciler.Deduct(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyDeducted)
	assert.Equal(t, 4, f.stock(t, bookID))
}

func TestDeduct_ClampsAtZero(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, "b", 1)
	orderID := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 3})

	res, err := f.reconciler.Deduct(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Clamped)
	assert.Equal(t, 0, f.stock(t, bookID))
}

func TestDeduct_ZeroQuantityTreatedAsOne(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, "b", 3)
	orderID := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 0})

	_, err := f.reconciler.Deduct(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t, bookID))
}

func TestDeduct_SkipsDeletedBookAndStillFlags(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kept := f.addBook(t, "kept", 2)
	gone := f.addBook(t, "gone", 2)
	orderID := f.addOrder(t,
		order.OrderItem{BookID: gone, Quantity: 1},
		order.OrderItem{BookID: kept, Quantity: 1},
	)
	require.NoError(t, f.books.Delete(ctx, gone))

	res, err := f.reconciler.Deduct(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Deducted)
	assert.Equal(t, 1, f.stock(t, kept))

	o, err := f.orders.FindByID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, o.StockDeducted)
}

func TestDeduct_FailureRollsBackWholeBatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.addBook(t, "first", 5)
	second := f.addBook(t, "second", 5)
	orderID := f.addOrder(t,
		order.OrderItem{BookID: first, Quantity: 1},
		order.OrderItem{BookID: second, Quantity: 1},
	)

	boom := errors.New("deadlock found")
	f.store.FailOn("orders.MarkStockDeducted", boom)

	_, err := f.reconciler.Deduct(ctx, orderID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, f.stock(t, first))
	assert.Equal(t, 5, f.stock(t, second))

	// 故障恢复后重试,只扣减一次
	f.store.FailOn("orders.MarkStockDeducted", nil)
	_, err = f.reconciler.Deduct(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, first))
	assert.Equal(t, 4, f.stock(t, second))
}

func TestDeduct_UnknownOrder(t *testing.T) {
	f := newFixture()
	_, err := f.reconciler.Deduct(context.Background(), 404)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestDeduct_ConcurrentOrdersNeverGoNegative(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, "hot", 2)
	a := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 2})
	b := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 2})

	var wg sync.WaitGroup
	results := make([]order.DeductResult, 2)
	for i, id := range []uint{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.reconciler.Deduct(context.Background(), id)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.stock(t, bookID))
	assert.Equal(t, 1, results[0].Clamped+results[1].Clamped)
}

func TestDeduct_ConcurrentDuplicateConfirmations(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, "b", 10)
	orderID := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 3})

	var wg sync.WaitGroup
	var mu sync.Mutex
	noops := 0
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.reconciler.Deduct(context.Background(), orderID)
			assert.NoError(t, err)
			if res.AlreadyDeducted {
				mu.Lock()
				noops++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, f.stock(t, bookID))
	assert.Equal(t, 4, noops)
}

func TestDeduct_JoinsOuterTransaction(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, "b", 5)
	orderID := f.addOrder(t, order.OrderItem{BookID: bookID, Quantity: 2})

	outerErr := errors.New("mark paid failed")
	err := f.store.Transaction(context.Background(), func(ctx context.Context) error {
		if _, err := f.reconciler.Deduct(ctx, orderID); err != nil {
			return err
		}
		return outerErr
	})

	assert.ErrorIs(t, err, outerErr)
	assert.Equal(t, 5, f.stock(t, bookID))
}
