package admin

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apporder "github.com/xiebiao/bookstore-orders/internal/application/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	topN       = 10
)

// ViewUseCase 后台订单视图
// 分类只依赖(Status, DelivStatus),每次读取时重新计算
type ViewUseCase struct {
	orders       order.Repository
	users        user.Repository
	reportWindow time.Duration
}

// NewViewUseCase reportWindow为销售报表未指定起始时间时的默认跨度
func NewViewUseCase(orders order.Repository, users user.Repository, reportWindow time.Duration) *ViewUseCase {
	if reportWindow <= 0 {
		reportWindow = 30 * 24 * time.Hour
	}
	return &ViewUseCase{orders: orders, users: users, reportWindow: reportWindow}
}

func (uc *ViewUseCase) view(ctx context.Context, filter order.AdminFilter, p order.Predicate) ([]apporder.OrderDTO, error) {
	orders, err := uc.orders.ListForAdmin(ctx, filter)
	if err != nil {
		return nil, err
	}
	matched := order.Filter(orders, p)
	out := make([]apporder.OrderDTO, len(matched))
	for i, o := range matched {
		out[i] = apporder.NewOrderDTO(o)
	}
	return out, nil
}

// InFlight 进行中的订单
func (uc *ViewUseCase) InFlight(ctx context.Context) ([]apporder.OrderDTO, error) {
	return uc.view(ctx, order.AdminFilter{
		Deliveries: []order.DeliveryStatus{order.DeliveryPending, order.DeliveryProcessing, order.DeliveryShipped},
	}, order.IsInFlight)
}

// Completed 已完成交易
func (uc *ViewUseCase) Completed(ctx context.Context) ([]apporder.OrderDTO, error) {
	return uc.view(ctx, order.AdminFilter{
		Deliveries: []order.DeliveryStatus{order.DeliveryDelivered, order.DeliveryRefundRejected},
	}, order.IsCompletedTransaction)
}

// RefundQueue 待处理退款
func (uc *ViewUseCase) RefundQueue(ctx context.Context) ([]apporder.OrderDTO, error) {
	return uc.view(ctx, order.AdminFilter{
		Deliveries: []order.DeliveryStatus{order.DeliveryRefundProcessing},
	}, order.IsRefundQueue)
}

// ReturnRow 退货列表按明细展开
type ReturnRow struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	UserID      uint   `json:"user_id"`
	Customer    string `json:"customer"`
	BookID      uint   `json:"book_id"`
	Title       string `json:"title"`
	Quantity    int    `json:"qty"`
	Price       int64  `json:"price"`
	LineTotal   int64  `json:"line_total"`
	Reason      string `json:"reason"`
	Image       string `json:"image,omitempty"` // 第一张凭证
	RequestedAt string `json:"requested_at,omitempty"`
	ResolvedAt  string `json:"resolved_at,omitempty"`
}

// Returns 已退款订单,每个明细一行
func (uc *ViewUseCase) Returns(ctx context.Context) ([]ReturnRow, error) {
	orders, err := uc.orders.ListForAdmin(ctx, order.AdminFilter{
		Deliveries: []order.DeliveryStatus{order.DeliveryRefunded},
	})
	if err != nil {
		return nil, err
	}
	var rows []ReturnRow
	for _, o := range order.Filter(orders, order.IsReturned) {
		var image string
		if len(o.RefundImages) > 0 {
			image = o.RefundImages[0]
		}
		for _, item := range o.Items {
			rows = append(rows, ReturnRow{
				OrderID:     o.ID,
				OrderNo:     o.OrderNo,
				UserID:      o.UserID,
				Customer:    o.Shipping.Name,
				BookID:      item.BookID,
				Title:       item.Title,
				Quantity:    item.Quantity,
				Price:       item.Price,
				LineTotal:   item.LineTotal(),
				Reason:      o.RefundReason,
				Image:       image,
				RequestedAt: formatTime(o.RefundRequestedAt),
				ResolvedAt:  formatTime(o.RefundResolvedAt),
			})
		}
	}
	return rows, nil
}

// SalesReportRequest 时间为闭开区间[From, To),零值表示使用默认窗口
type SalesReportRequest struct {
	From time.Time
	To   time.Time
}

// KPIs 汇总指标,金额单位为分
type KPIs struct {
	Revenue           int64 `json:"revenue"`
	Orders            int   `json:"orders"`
	Items             int   `json:"items"`
	AverageOrderValue int64 `json:"aov"`
}

// SalesRow 销售明细表
type SalesRow struct {
	OrderID   uint   `json:"order_id"`
	OrderNo   string `json:"order_no"`
	UserID    uint   `json:"user_id"`
	Customer  string `json:"customer"`
	Items     int    `json:"items"`
	Total     int64  `json:"total"`
	CreatedAt string `json:"created_at"`
}

// TopBook 畅销书
type TopBook struct {
	BookID   uint   `json:"book_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover"`
	Quantity int    `json:"qty"`
	Revenue  int64  `json:"revenue"`
}

// TopCustomer 消费排行
type TopCustomer struct {
	UserID     uint   `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Orders     int    `json:"orders"`
	TotalSpent int64  `json:"total_spent"`
}

// CustomerInsights 新客(1单)与回头客(>1单)
type CustomerInsights struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Returning int `json:"returning"`
}

// SalesReport 销售报表
type SalesReport struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	KPIs         KPIs             `json:"kpis"`
	Sales        []SalesRow       `json:"sales"`
	TopBooks     []TopBook        `json:"top_books"`
	TopCustomers []TopCustomer    `json:"top_customers"`
	Customers    CustomerInsights `json:"customers"`
}

// SalesReport 统计区间内计入销售额的订单
// 各项统计相互独立,并发计算
func (uc *ViewUseCase) SalesReport(ctx context.Context, req SalesReportRequest) (*SalesReport, error) {
	to := req.To
	if to.IsZero() {
		to = time.Now()
	}
	from := req.From
	if from.IsZero() {
		from = to.Add(-uc.reportWindow)
	}
	if !from.Before(to) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "起始时间必须早于结束时间")
	}

	orders, err := uc.orders.ListForAdmin(ctx, order.AdminFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	sales := order.Filter(orders, order.IsSalesRevenue)

	report := &SalesReport{From: from.Format(timeLayout), To: to.Format(timeLayout)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.KPIs, report.Sales = summarizeSales(sales)
		return nil
	})
	g.Go(func() error {
		report.TopBooks = topBooks(sales)
		return nil
	})
	g.Go(func() error {
		customers, insights, err := uc.topCustomers(gctx, sales)
		if err != nil {
			return err
		}
		report.TopCustomers, report.Customers = customers, insights
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "sales report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("orders", report.KPIs.Orders),
	)
	return report, nil
}

// itemCount 数量缺失的明细按1件计
func itemCount(o *order.Order) int {
	n := 0
	for _, item := range o.Items {
		n += max(1, item.Quantity)
	}
	return n
}

func summarizeSales(sales []*order.Order) (KPIs, []SalesRow) {
	var k KPIs
	rows := make([]SalesRow, len(sales))
	for i, o := range sales {
		n := itemCount(o)
		k.Revenue += o.Total
		k.Items += n
		rows[i] = SalesRow{
			OrderID:   o.ID,
			OrderNo:   o.OrderNo,
			UserID:    o.UserID,
			Customer:  o.Shipping.Name,
			Items:     n,
			Total:     o.Total,
			CreatedAt: o.CreatedAt.Format(timeLayout),
		}
	}
	k.Orders = len(sales)
	if k.Orders > 0 {
		k.AverageOrderValue = k.Revenue / int64(k.Orders)
	}
	return k, rows
}

func topBooks(sales []*order.Order) []TopBook {
	byBook := make(map[uint]*TopBook)
	for _, o := range sales {
		for _, item := range o.Items {
			tb, ok := byBook[item.BookID]
			if !ok {
				tb = &TopBook{BookID: item.BookID, Title: item.Title, Author: item.Author, CoverURL: item.CoverURL}
				byBook[item.BookID] = tb
			}
			qty := max(1, item.Quantity)
			tb.Quantity += qty
			tb.Revenue += item.Price * int64(qty)
		}
	}
	out := make([]TopBook, 0, len(byBook))
	for _, tb := range byBook {
		out = append(out, *tb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].BookID < out[j].BookID
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func (uc *ViewUseCase) topCustomers(ctx context.Context, sales []*order.Order) ([]TopCustomer, CustomerInsights, error) {
	byUser := make(map[uint]*TopCustomer)
	for _, o := range sales {
		tc, ok := byUser[o.UserID]
		if !ok {
			tc = &TopCustomer{UserID: o.UserID, Name: o.Shipping.Name, Email: o.Shipping.Email}
			byUser[o.UserID] = tc
		}
		tc.Orders++
		tc.TotalSpent += o.Total
	}

	var insights CustomerInsights
	out := make([]TopCustomer, 0, len(byUser))
	for _, tc := range byUser {
		insights.Total++
		if tc.Orders == 1 {
			insights.New++
		} else {
			insights.Returning++
		}
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSpent != out[j].TotalSpent {
			return out[i].TotalSpent > out[j].TotalSpent
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > topN {
		out = out[:topN]
	}

	// 榜单上的客户用账户资料展示,账户已不存在时保留收货信息
	for i := range out {
		u, err := uc.users.FindByID(ctx, out[i].UserID)
		if errors.Is(err, user.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, CustomerInsights{}, err
		}
		out[i].Name = u.DisplayName()
		out[i].Email = u.Email
	}
	return out, insights, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
