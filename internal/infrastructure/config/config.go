package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置
// 来源优先级:环境变量(BOOKSTORE_前缀) > .env > config/config.yaml > 默认值
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	MQ        MQConfig        `mapstructure:"mq"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Order     OrderConfig     `mapstructure:"order"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PublicURL 对外访问地址,用于拼接支付成功/取消回跳地址
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN 生成MySQL连接字符串,loc需要URL编码(Asia/Shanghai → Asia%2FShanghai)
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, url.QueryEscape(d.Loc))
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CartTTL 购物车闲置过期时间
	CartTTL time.Duration `mapstructure:"cart_ttl"`
}

// Addr Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug | info | warn | error
	Env   string `mapstructure:"env"`   // development | production
}

// PaymentConfig Stripe Checkout配置
type PaymentConfig struct {
	StripeSecretKey     string        `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string        `mapstructure:"stripe_webhook_secret"`
	SuccessPath         string        `mapstructure:"success_path"`
	CancelPath          string        `mapstructure:"cancel_path"`
	Timeout             time.Duration `mapstructure:"timeout"`
	// 熔断器
	BreakerMaxRequests uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval    time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
}

// MQConfig RabbitMQ配置
type MQConfig struct {
	URL             string   `mapstructure:"url"`
	Exchange        string   `mapstructure:"exchange"`
	ExchangeType    string   `mapstructure:"exchange_type"`
	ConfirmationKey string   `mapstructure:"confirmation_key"`
	Queue           string   `mapstructure:"queue"`
	BindingKeys     []string `mapstructure:"binding_keys"`
	Prefetch        int      `mapstructure:"prefetch"`
	Workers         int      `mapstructure:"workers"`
}

// TracingConfig OpenTelemetry配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// OrderConfig 下单相关配置,金额单位为分
type OrderConfig struct {
	Currency          string        `mapstructure:"currency"`
	StandardShipping  int64         `mapstructure:"standard_shipping_fee"`
	ExpressShipping   int64         `mapstructure:"express_shipping_fee"`
	CheckoutTimeout   time.Duration `mapstructure:"checkout_timeout"`
	AdminReportWindow time.Duration `mapstructure:"admin_report_window"`
}

// RateLimitConfig 下单/退款接口限流(按用户)
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// Load 从默认路径加载配置(./config/config.yaml或./config.yaml)
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom 从指定目录查找config.yaml并加载
// BOOKSTORE_ENV=prod时读取config.prod.yaml
func LoadFrom(paths ...string) (*Config, error) {
	// .env不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取.env失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOKSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	name := "config"
	if env := v.GetString("env"); env != "" {
		name = "config." + env
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.public_url", "http://localhost:8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.cart_ttl", 30*24*time.Hour)

	v.SetDefault("jwt.access_token_expire", 2*time.Hour)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "development")

	v.SetDefault("payment.success_path", "/api/v1/payments/return?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payment.cancel_path", "/api/v1/payments/return?cancelled=1&session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.breaker_max_requests", 1)
	v.SetDefault("payment.breaker_interval", time.Minute)
	v.SetDefault("payment.breaker_timeout", 30*time.Second)
	v.SetDefault("payment.breaker_failures", 5)

	v.SetDefault("mq.exchange", "bookstore.events")
	v.SetDefault("mq.exchange_type", "topic")
	v.SetDefault("mq.confirmation_key", "order.payment.confirmed")
	v.SetDefault("mq.queue", "bookstore.payment.confirmations")
	v.SetDefault("mq.binding_keys", []string{"order.payment.*"})
	v.SetDefault("mq.prefetch", 8)
	v.SetDefault("mq.workers", 4)

	v.SetDefault("tracing.service_name", "bookstore-orders")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("order.currency", "cny")
	v.SetDefault("order.standard_shipping_fee", 800)
	v.SetDefault("order.express_shipping_fee", 1800)
	v.SetDefault("order.checkout_timeout", 30*time.Second)
	v.SetDefault("order.admin_report_window", 30*24*time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.max_age", 12*time.Hour)
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}
	if cfg.Server.Mode == "release" {
		if cfg.JWT.Secret == "" || cfg.JWT.Secret == "your-secret-key-change-in-production" {
			return errors.New("生产环境必须修改JWT密钥")
		}
		if cfg.Payment.StripeWebhookSecret == "" {
			return errors.New("生产环境必须配置Stripe webhook密钥")
		}
	}
	if cfg.Order.StandardShipping < 0 || cfg.Order.ExpressShipping < 0 {
		return errors.New("运费不能为负数")
	}
	return nil
}

// ShippingFee 按配送方式返回运费
func (o OrderConfig) ShippingFee(express bool) int64 {
	if express {
		return o.ExpressShipping
	}
	return o.StandardShipping
}
