package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// NewDB 创建数据库连接
// debug模式打印SQL;auto_migrate开启时同步表结构
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		// 写操作由TxManager显式开启事务
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	logger.Log.Info("数据库连接成功",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName),
	)

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return db, nil
}

// AutoMigrate 同步表结构,只加表加列不删列
// 生产环境应使用版本化迁移脚本
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&OrderModel{},
		&OrderItemModel{},
		&ReviewModel{},
		&AuditEntryModel{},
	)
}

// UserModel 用户表
type UserModel struct {
	ID          uint       `gorm:"primaryKey"`
	Email       string     `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password    string     `gorm:"size:255;not null;comment:密码(bcrypt)"`
	Nickname    string     `gorm:"size:50;not null;comment:昵称"`
	Role        string     `gorm:"size:16;not null;default:customer;index;comment:角色"`
	Suspended   bool       `gorm:"not null;default:false;comment:是否停用"`
	SuspendedAt *time.Time `gorm:"comment:停用时间"`
	LastOrderID *uint      `gorm:"comment:最近支付订单ID"`
	LastOrderAt *time.Time `gorm:"comment:最近支付时间"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// BookModel 图书表,价格以分存储
// 删除为软删除,已下单的明细仍可引用
type BookModel struct {
	ID          uint           `gorm:"primaryKey"`
	Title       string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author      string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Category    string         `gorm:"index;size:50;comment:分类"`
	Price       int64          `gorm:"index:idx_list;not null;comment:价格(分)"`
	Rating      float64        `gorm:"not null;default:0;comment:评分"`
	Stock       int            `gorm:"not null;default:0;comment:库存"`
	CoverURL    string         `gorm:"size:500;comment:封面"`
	Description string         `gorm:"type:text;comment:简介"`
	CreatedAt   time.Time      `gorm:"index:idx_list"`
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (BookModel) TableName() string {
	return "books"
}

// OrderModel 订单表
// status为支付轴,delivstatus为配送轴,都以字符串存储,读取时在toOrderEntity中解析
type OrderModel struct {
	ID          uint   `gorm:"primaryKey"`
	OrderNo     string `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID      uint   `gorm:"index;not null;comment:买家ID"`
	Subtotal    int64  `gorm:"not null;comment:商品金额(分)"`
	ShippingFee int64  `gorm:"not null;default:0;comment:运费(分)"`
	Total       int64  `gorm:"not null;comment:总金额(分)"`

	ShipName     string `gorm:"size:100"`
	ShipEmail    string `gorm:"size:100"`
	ShipPhone    string `gorm:"size:30"`
	ShipUnit     string `gorm:"size:50"`
	ShipStreet   string `gorm:"size:200"`
	ShipCity     string `gorm:"size:100"`
	ShipProvince string `gorm:"size:100"`
	ShipPostal   string `gorm:"size:20"`

	DeliveryMethod string `gorm:"size:16;not null;default:standard"`
	PaymentMethod  string `gorm:"size:16;not null;default:online"`

	Status        string `gorm:"size:16;not null;default:initiated;index;comment:支付状态"`
	DelivStatus   string `gorm:"column:delivstatus;size:20;not null;default:pending;index;comment:配送状态"`
	StockDeducted bool   `gorm:"not null;default:false;comment:库存是否已扣减"`
	COD           bool   `gorm:"column:cod;not null;default:false"`

	CheckoutSessionID string `gorm:"size:255;index;comment:Stripe Checkout会话ID"`

	RefundReason      string     `gorm:"type:text"`
	RefundImages      string     `gorm:"type:json;comment:退款凭证(JSON数组)"`
	RefundRequestedAt *time.Time
	RefundResolvedAt  *time.Time

	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
	PaidAt    *time.Time
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细,保存下单时的图书快照
type OrderItemModel struct {
	ID       uint   `gorm:"primaryKey"`
	OrderID  uint   `gorm:"index;not null"`
	BookID   uint   `gorm:"index;not null"`
	Title    string `gorm:"size:200"`
	Author   string `gorm:"size:100"`
	CoverURL string `gorm:"size:500"`
	Price    int64  `gorm:"not null;comment:下单时单价(分)"`
	Quantity int    `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// ReviewModel 评价表,(book_id, user_id)唯一
type ReviewModel struct {
	ID        uint   `gorm:"primaryKey"`
	BookID    uint   `gorm:"uniqueIndex:uk_book_user;not null"`
	UserID    uint   `gorm:"uniqueIndex:uk_book_user;index;not null"`
	UserName  string `gorm:"size:50"`
	Rating    int    `gorm:"type:tinyint;not null"`
	Text      string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReviewModel) TableName() string {
	return "reviews"
}

// AuditEntryModel 管理员操作审计,只追加
type AuditEntryModel struct {
	ID             uint      `gorm:"primaryKey"`
	AdminID        uint      `gorm:"index;not null"`
	AdminEmail     string    `gorm:"size:100"`
	Action         string    `gorm:"size:32;index;not null"`
	TargetUserID   *uint     `gorm:"index"`
	TargetResource string    `gorm:"size:16"`
	ResourceID     string    `gorm:"size:64"`
	Details        string    `gorm:"type:json"`
	CreatedAt      time.Time `gorm:"index"`
}

func (AuditEntryModel) TableName() string {
	return "audit_entries"
}
