package prometheus

import (
	"time"

	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Order metrics
	OrdersCreatedCounter   prometheus.Counter
	OrdersCancelledCounter prometheus.Counter
	OrderStatusCounter     prometheus.CounterVec

	// POS metrics
	PosTransactionsCounter prometheus.CounterVec

	// Stock metrics
	StockRejectionsCounter prometheus.CounterVec
	VariantStockGauge      prometheus.GaugeVec

	// Coupon metrics
	CouponApplicationsCounter prometheus.CounterVec

	// Mail metrics
	MailDispatchCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Order metrics
	OrdersCreatedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrdersCancelledCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		},
	)

	OrderStatusCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_status_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"status"},
	)

	// POS metrics
	PosTransactionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_pos_transactions_total",
			Help: "Total number of POS transactions",
		},
		[]string{"status"},
	)

	// Stock metrics
	StockRejectionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_rejections_total",
			Help: "Total number of checkout attempts rejected for insufficient stock",
		},
		[]string{"channel"},
	)

	VariantStockGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_variant_stock",
			Help: "Current stock level per product variant",
		},
		[]string{"product_id", "variant_key"},
	)

	// Coupon metrics
	CouponApplicationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_coupon_applications_total",
			Help: "Total number of coupon applications",
		},
		[]string{"result"},
	)

	// Mail metrics
	MailDispatchCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_mail_dispatch_total",
			Help: "Total number of order confirmation mail dispatches",
		},
		[]string{"result"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthError increments the counter for a failed authentication
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordStockRejection increments the counter for an insufficient-stock rejection
func RecordStockRejection(channel string) {
	StockRejectionsCounter.WithLabelValues(channel).Inc()
}

// RecordMailDispatch increments the counter for a mail dispatch outcome
func RecordMailDispatch(result string) {
	MailDispatchCounter.WithLabelValues(result).Inc()
}

// RecordCouponApplication increments the counter for a coupon application outcome
func RecordCouponApplication(result string) {
	CouponApplicationsCounter.WithLabelValues(result).Inc()
}

// UpdateVariantStock updates the gauge for a product variant stock level
func UpdateVariantStock(productID string, variantKey string, count float64) {
	VariantStockGauge.WithLabelValues(productID, variantKey).Set(count)
}
