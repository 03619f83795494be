package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestTxManager_NestedCallJoinsOuter(t *testing.T) {
	db, mock := setupMockDB(t)
	tx := NewTxManager(db)
	books := NewBookRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `books` SET `stock`=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		return tx.Transaction(ctx, func(ctx context.Context) error {
			return books.SetStock(ctx, 1, 3)
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	tx := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkStockDeducted(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "首次翻转", affected: 1, want: true},
		{name: "已经扣减过", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewOrderRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE `orders` SET `stock_deducted`=?")).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.MarkStockDeducted(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookRepository_LockByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `books` .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LockByID(context.Background(), 42)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepository_AdjustStock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `books` SET `stock`=GREATEST(CAST(stock AS SIGNED) + ?, 0)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `books` SET `stock`=GREATEST(CAST(stock AS SIGNED) + ?, 0)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AdjustStock(context.Background(), 1, 2))
	assert.ErrorIs(t, repo.AdjustStock(context.Background(), 2, 2), book.ErrBookNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'email'"})

	err := repo.Create(context.Background(), user.NewUser("a@b.c", "hash", "nick"))
	assert.ErrorIs(t, err, user.ErrEmailDuplicate)
}

func TestToOrderEntity_ParsesStatuses(t *testing.T) {
	m := &OrderModel{
		ID:           1,
		Status:       " PAID ",
		DelivStatus:  "",
		RefundImages: `["a.png","b.png"]`,
		Items:        []OrderItemModel{{ID: 3, OrderID: 1, BookID: 9, Quantity: 2, Price: 500}},
	}

	o, err := toOrderEntity(m)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.Status)
	assert.Equal(t, order.DeliveryPending, o.DelivStatus)
	assert.Equal(t, []string{"a.png", "b.png"}, o.RefundImages)
	assert.Equal(t, order.DeliveryStandard, o.DeliveryMethod)
	require.Len(t, o.Items, 1)
	assert.Equal(t, uint(9), o.Items[0].BookID)
}

func TestToOrderEntity_UnknownStatus(t *testing.T) {
	_, err := toOrderEntity(&OrderModel{ID: 1, Status: "paid", DelivStatus: "lost-in-transit"})
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestToOrderModel_EmptyImagesEncodeAsArray(t *testing.T) {
	now := time.Now()
	m := toOrderModel(&order.Order{ID: 5, Status: order.PaymentInitiated, CreatedAt: now,
		Items: []order.OrderItem{{BookID: 1, Quantity: 1}}})
	assert.Equal(t, "[]", m.RefundImages)
	assert.Equal(t, uint(5), m.Items[0].OrderID)
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, isDuplicateError(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateError(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateError(&mysqldriver.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateError(nil))
}
