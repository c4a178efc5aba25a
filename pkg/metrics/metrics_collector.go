package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector 指标收集器
// 所有方法对 nil 接收者安全，单元测试中可以直接传 nil
type MetricsCollector struct {
	registry *prometheus.Registry

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	ordersCreatedTotal     prometheus.Counter
	payoutsCreatedTotal    prometheus.Counter
	couponValidationsTotal *prometheus.CounterVec
	couponRedemptionsTotal prometheus.Counter
	paymentsConfirmedTotal *prometheus.CounterVec
	paymentsExpiredTotal   prometheus.Counter
	webhookEventsTotal     *prometheus.CounterVec
	rateLimitedTotal       *prometheus.CounterVec
	eventsDroppedTotal     prometheus.Counter
}

// NewMetricsCollector 创建指标收集器（独立 Registry，避免重复注册）
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ordersCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Orders created by the commission splitter",
		}),
		payoutsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_seller_payouts_created_total",
			Help: "Seller payout rows created",
		}),
		couponValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_coupon_validations_total",
			Help: "Coupon validations by result",
		}, []string{"result"}),
		couponRedemptionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_coupon_redemptions_total",
			Help: "Coupons redeemed against orders",
		}),
		paymentsConfirmedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_payments_confirmed_total",
			Help: "PIX payments transitioned to PAID, by trigger",
		}, []string{"source"}),
		paymentsExpiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_payments_expired_total",
			Help: "PIX payments transitioned to EXPIRED",
		}),
		webhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_webhook_events_total",
			Help: "Payment provider webhook deliveries by outcome",
		}, []string{"provider", "outcome"}),
		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
		eventsDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_events_dropped_total",
			Help: "Domain events dropped after exhausting retries",
		}),
	}
}

// Handler /metrics 暴露接口
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 暴露给测试
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// OrderCreated 记录订单与分账行数
func (m *MetricsCollector) OrderCreated(payouts int) {
	if m == nil {
		return
	}
	m.ordersCreatedTotal.Inc()
	m.payoutsCreatedTotal.Add(float64(payouts))
}

// CouponValidated 记录优惠券校验结果
func (m *MetricsCollector) CouponValidated(result string) {
	if m == nil {
		return
	}
	m.couponValidationsTotal.WithLabelValues(result).Inc()
}

// CouponRedeemed 记录优惠券核销
func (m *MetricsCollector) CouponRedeemed() {
	if m == nil {
		return
	}
	m.couponRedemptionsTotal.Inc()
}

// PaymentConfirmed 记录支付确认 (webhook / polling / simulate)
func (m *MetricsCollector) PaymentConfirmed(source string) {
	if m == nil {
		return
	}
	m.paymentsConfirmedTotal.WithLabelValues(source).Inc()
}

// PaymentExpired 记录支付过期
func (m *MetricsCollector) PaymentExpired() {
	if m == nil {
		return
	}
	m.paymentsExpiredTotal.Inc()
}

// WebhookReceived 记录 webhook 处理结果
func (m *MetricsCollector) WebhookReceived(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(provider, outcome).Inc()
}

// RateLimited 记录被限流的请求
func (m *MetricsCollector) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(route).Inc()
}

// EventDropped 记录丢弃的领域事件
func (m *MetricsCollector) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDroppedTotal.Inc()
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
