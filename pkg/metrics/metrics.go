// Package metrics Prometheus指标定义
//
// 所有指标在包初始化时通过promauto注册到默认Registry,由/metrics端点(promhttp)暴露。
// 命名空间统一为bookstore。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookstore"

var (
	// ===== HTTP =====

	// HTTPRequestsTotal HTTP请求总数,标签:method、path(路由模板)、status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时(秒)",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "正在处理的HTTP请求数",
		},
	)

	// ===== 库存扣减 =====

	// StockDeductionsTotal 库存扣减执行次数
	// result: deducted(本次扣减) | noop(已扣减过,幂等跳过) | failed(事务回滚)
	StockDeductionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_deductions_total",
			Help:      "订单库存扣减次数",
		},
		[]string{"result"},
	)

	// StockClampedTotal 扣减时库存不足被截断为0的明细数
	StockClampedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_clamped_total",
			Help:      "库存不足被截断为0的订单明细数",
		},
	)

	// StockItemsSkippedTotal 图书已删除而跳过的明细数
	StockItemsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_items_skipped_total",
			Help:      "图书不存在而跳过扣减的订单明细数",
		},
	)

	// StockDeductionDuration 单次扣减事务耗时
	StockDeductionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stock_deduction_duration_seconds",
			Help:      "库存扣减事务耗时(秒)",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// ===== 订单 =====

	// OrderTransitionsTotal 订单状态变更次数,axis: payment | delivery
	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "订单状态变更次数",
		},
		[]string{"axis", "to"},
	)

	// CheckoutsTotal 下单次数,method: online | cod, result: success | failure
	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "下单次数",
		},
		[]string{"method", "result"},
	)

	// ===== 熔断器 =====

	// CircuitBreakerState 熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests 熔断器请求数,result: success | failure | rejected
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// ===== Saga =====

	// SagaExecutionsTotal Saga执行次数,标签:saga名称、result
	SagaExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_executions_total",
			Help:      "Saga执行总数",
		},
		[]string{"saga", "result"},
	)

	// SagaCompensationsTotal Saga补偿步骤执行次数
	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_compensations_total",
			Help:      "Saga补偿执行总数",
		},
		[]string{"saga", "step", "result"},
	)

	// ===== 消息队列 =====

	// MessagesPublishedTotal 消息发布数
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)

	// MessagesConsumedTotal 消息消费数,result: ack | requeue | drop
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "消息消费总数",
		},
		[]string{"queue", "result"},
	)

	// MessageProcessingDuration 单条消息处理耗时
	MessageProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_duration_seconds",
			Help:      "消息处理耗时(秒)",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"queue"},
	)
)

// ObserveSince 记录从start开始的耗时
func ObserveSince(observer prometheus.Observer, start time.Time) {
	observer.Observe(time.Since(start).Seconds())
}
