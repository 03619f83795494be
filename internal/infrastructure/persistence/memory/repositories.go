package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/book"
	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/review"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
)

// ===== 图书 =====

// BookRepository 实现book.Repository
type BookRepository struct{ s *Store }

var _ book.Repository = (*BookRepository)(nil)

func (r *BookRepository) Create(_ context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("books.Create"); err != nil {
		return err
	}
	b.ID = r.s.newID()
	r.s.t.books[b.ID] = *b
	return nil
}

func (r *BookRepository) FindByID(_ context.Context, id uint) (*book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.t.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	return &b, nil
}

func (r *BookRepository) Update(_ context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.books[b.ID]; !ok {
		return book.ErrBookNotFound
	}
	r.s.t.books[b.ID] = *b
	return nil
}

func (r *BookRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.t.books, id)
	return nil
}

func (r *BookRepository) List(_ context.Context, p book.ListParams) ([]*book.Book, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kw := strings.ToLower(strings.TrimSpace(p.Keyword))
	var out []*book.Book
	for _, b := range r.s.t.books {
		if kw != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Author), kw) {
			continue
		}
		if p.Category != "" && !strings.EqualFold(b.Category, p.Category) {
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, p.Page, p.PageSize), int64(len(out)), nil
}

func (r *BookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *BookRepository) SetStock(_ context.Context, id uint, stock int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("books.SetStock"); err != nil {
		return err
	}
	b, ok := r.s.t.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	b.Stock = stock
	r.s.t.books[id] = b
	return nil
}

func (r *BookRepository) AdjustStock(_ context.Context, id uint, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.t.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	b.Stock = max(0, b.Stock+delta)
	r.s.t.books[id] = b
	return nil
}

// ===== 订单 =====

// OrderRepository 实现order.Repository
type OrderRepository struct{ s *Store }

var _ order.Repository = (*OrderRepository)(nil)

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	o.RefundImages = slices.Clone(o.RefundImages)
	return o
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("orders.Create"); err != nil {
		return err
	}
	o.ID = r.s.newID()
	for i := range o.Items {
		o.Items[i].ID = r.s.newID()
		o.Items[i].OrderID = o.ID
	}
	r.s.t.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uint) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.t.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) findBy(match func(order.Order) bool) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.t.orders {
		if match(o) {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *OrderRepository) FindByOrderNo(_ context.Context, orderNo string) (*order.Order, error) {
	return r.findBy(func(o order.Order) bool { return o.OrderNo == orderNo })
}

func (r *OrderRepository) FindByCheckoutSessionID(_ context.Context, sessionID string) (*order.Order, error) {
	return r.findBy(func(o order.Order) bool { return sessionID != "" && o.CheckoutSessionID == sessionID })
}

func (r *OrderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	r.s.mu.Lock()
	err := r.s.fault("orders.LockByID")
	r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) Update(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("orders.Update"); err != nil {
		return err
	}
	cur, ok := r.s.t.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	next := cloneOrder(*o)
	// 明细和扣减标记不由Update修改
	next.Items = cur.Items
	next.StockDeducted = cur.StockDeducted
	r.s.t.orders[o.ID] = next
	return nil
}

func (r *OrderRepository) MarkStockDeducted(_ context.Context, id uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("orders.MarkStockDeducted"); err != nil {
		return false, err
	}
	o, ok := r.s.t.orders[id]
	if !ok || o.StockDeducted {
		return false, nil
	}
	o.StockDeducted = true
	r.s.t.orders[id] = o
	return true, nil
}

func (r *OrderRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("orders.Delete"); err != nil {
		return err
	}
	delete(r.s.t.orders, id)
	return nil
}

func (r *OrderRepository) sorted(match func(order.Order) bool) []*order.Order {
	var out []*order.Order
	for _, o := range r.s.t.orders {
		if match(o) {
			o = cloneOrder(o)
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *OrderRepository) ListByUserID(_ context.Context, userID uint, f order.ListFilter) ([]*order.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(o order.Order) bool {
		return o.UserID == userID && (len(f.Deliveries) == 0 || slices.Contains(f.Deliveries, o.DelivStatus))
	})
	return paginate(out, f.Page, f.PageSize), int64(len(out)), nil
}

func (r *OrderRepository) ListForAdmin(_ context.Context, f order.AdminFilter) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("orders.ListForAdmin"); err != nil {
		return nil, err
	}
	return r.sorted(func(o order.Order) bool {
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && !o.CreatedAt.Before(*f.To) {
			return false
		}
		return len(f.Deliveries) == 0 || slices.Contains(f.Deliveries, o.DelivStatus)
	}), nil
}

func (r *OrderRepository) HasPaidOrderWithBook(_ context.Context, userID, bookID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.t.orders {
		if o.UserID == userID && o.Status == order.PaymentPaid && o.ContainsBook(bookID) {
			return true, nil
		}
	}
	return false, nil
}

// ===== 用户 =====

// UserRepository 实现user.Repository
type UserRepository struct{ s *Store }

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.t.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailDuplicate
		}
	}
	u.ID = r.s.newID()
	r.s.t.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.t.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.t.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepository) Update(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	r.s.t.users[u.ID] = *u
	return nil
}

func (r *UserRepository) List(_ context.Context, p user.ListParams) ([]*user.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kw := strings.ToLower(p.Keyword)
	var out []*user.User
	for _, u := range r.s.t.users {
		if p.Role != "" && u.Role != p.Role {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.Nickname), kw) {
			continue
		}
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, p.Page, p.PageSize), int64(len(out)), nil
}

func (r *UserRepository) RecordLastOrder(_ context.Context, userID, orderID uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("users.RecordLastOrder"); err != nil {
		return err
	}
	u, ok := r.s.t.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.LastOrderID = &orderID
	u.LastOrderAt = &at
	r.s.t.users[userID] = u
	return nil
}

// ===== 评价 =====

// ReviewRepository 实现review.Repository
type ReviewRepository struct{ s *Store }

var _ review.Repository = (*ReviewRepository)(nil)

func (r *ReviewRepository) FindByBookAndUser(_ context.Context, bookID, userID uint) (*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.t.reviews {
		if rv.BookID == bookID && rv.UserID == userID {
			return &rv, nil
		}
	}
	return nil, review.ErrReviewNotFound
}

func (r *ReviewRepository) FindByID(_ context.Context, id uint) (*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.t.reviews[id]
	if !ok {
		return nil, review.ErrReviewNotFound
	}
	return &rv, nil
}

func (r *ReviewRepository) Save(_ context.Context, rv *review.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.t.reviews {
		if existing.BookID == rv.BookID && existing.UserID == rv.UserID {
			rv.ID = id
			rv.CreatedAt = existing.CreatedAt
			r.s.t.reviews[id] = *rv
			return nil
		}
	}
	rv.ID = r.s.newID()
	r.s.t.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewRepository) ListByBook(_ context.Context, bookID uint) ([]*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*review.Review
	for _, rv := range r.s.t.reviews {
		if rv.BookID == bookID {
			out = append(out, &rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *ReviewRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.t.reviews, id)
	return nil
}

// ===== 审计 =====

// AuditRepository 实现audit.Repository
type AuditRepository struct{ s *Store }

var _ audit.Repository = (*AuditRepository)(nil)

func (r *AuditRepository) Append(_ context.Context, e *audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("audits.Append"); err != nil {
		return err
	}
	e.ID = r.s.newID()
	r.s.t.audits = append(r.s.t.audits, *e)
	return nil
}

func (r *AuditRepository) List(_ context.Context, p audit.ListParams) ([]*audit.Entry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*audit.Entry
	for i := len(r.s.t.audits) - 1; i >= 0; i-- {
		e := r.s.t.audits[i]
		if p.Action != "" && e.Action != p.Action {
			continue
		}
		if p.AdminID != 0 && e.AdminID != p.AdminID {
			continue
		}
		out = append(out, &e)
	}
	return paginate(out, p.Page, p.PageSize), int64(len(out)), nil
}

// ===== 购物车 =====

// CartRepository 实现cart.Repository
type CartRepository struct{ s *Store }

var _ cart.Repository = (*CartRepository)(nil)

func (r *CartRepository) Get(_ context.Context, userID uint) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.carts[userID]
	if !ok {
		return &cart.Cart{UserID: userID}, nil
	}
	c.Items = slices.Clone(c.Items)
	return &c, nil
}

func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("carts.Save"); err != nil {
		return err
	}
	cp := *c
	cp.Items = slices.Clone(c.Items)
	r.s.t.carts[c.UserID] = cp
	return nil
}

// Update 在存储锁内完成读取-修改-写回
func (r *CartRepository) Update(_ context.Context, userID uint, fn func(*cart.Cart) error) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("carts.Update"); err != nil {
		return nil, err
	}
	c, ok := r.s.t.carts[userID]
	if !ok {
		c = cart.Cart{UserID: userID}
	}
	c.Items = slices.Clone(c.Items)
	if err := fn(&c); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		delete(r.s.t.carts, userID)
	} else {
		cp := c
		cp.Items = slices.Clone(c.Items)
		r.s.t.carts[userID] = cp
	}
	return &c, nil
}

func (r *CartRepository) Clear(_ context.Context, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("carts.Clear"); err != nil {
		return err
	}
	delete(r.s.t.carts, userID)
	return nil
}
