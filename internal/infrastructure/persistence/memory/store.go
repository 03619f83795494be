// Package memory 内存版仓储实现
//
// 语义与MySQL实现保持一致(事务回滚、行锁串行化、唯一键),供用例和领域测试使用。
// Transaction在整个事务期间持有一把全局锁,相当于把所有行锁合并成一把表锁。
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/review"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
)

type txKey struct{}

type tables struct {
	books   map[uint]book.Book
	orders  map[uint]order.Order
	users   map[uint]user.User
	reviews map[uint]review.Review
	audits  []audit.Entry
	carts   map[uint]cart.Cart
	nextID  uint
}

func (t *tables) clone() tables {
	c := tables{
		books:   maps.Clone(t.books),
		orders:  make(map[uint]order.Order, len(t.orders)),
		users:   maps.Clone(t.users),
		reviews: maps.Clone(t.reviews),
		audits:  slices.Clone(t.audits),
		carts:   make(map[uint]cart.Cart, len(t.carts)),
		nextID:  t.nextID,
	}
	for id, o := range t.orders {
		c.orders[id] = cloneOrder(o)
	}
	for id, ct := range t.carts {
		ct.Items = slices.Clone(ct.Items)
		c.carts[id] = ct
	}
	return c
}

// Store 内存数据库
type Store struct {
	txMu sync.Mutex // 事务锁
	mu   sync.Mutex // 数据锁
	t    tables

	faults map[string]error
}

// NewStore 创建空的内存数据库
func NewStore() *Store {
	return &Store{
		t: tables{
			books:   map[uint]book.Book{},
			orders:  map[uint]order.Order{},
			users:   map[uint]user.User{},
			reviews: map[uint]review.Review{},
			carts:   map[uint]cart.Cart{},
		},
		faults: map[string]error{},
	}
}

// Transaction 实现order.TxManager,ctx中已有事务时直接加入
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FailOn 让指定操作返回err,用于模拟存储故障;err为nil时清除
// op形如"books.SetStock"、"orders.MarkStockDeducted"
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// fault 调用方需持有s.mu
func (s *Store) fault(op string) error {
	return s.faults[op]
}

func (s *Store) newID() uint {
	s.t.nextID++
	return s.t.nextID
}

// Books 图书仓储
func (s *Store) Books() *BookRepository { return &BookRepository{s: s} }

// Orders 订单仓储
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Users 用户仓储
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Reviews 评价仓储
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// Audits 审计仓储
func (s *Store) Audits() *AuditRepository { return &AuditRepository{s: s} }

// Carts 购物车存储
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// paginate 页码从1开始,pageSize<=0表示不分页
func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
