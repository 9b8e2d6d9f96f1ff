package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label result.
const (
	ResultSuccess      = "success"
	ResultNotFound     = "not_found"
	ResultPrecondition = "precondition"
	ResultForbidden    = "forbidden"
	ResultConfig       = "configuration"
	ResultError        = "error"
)

// OrderMetrics содержит метрики операций с заказами.
type OrderMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	toadClaims  *prometheus.CounterVec
	inFlight    prometheus.Gauge
	ordersFreed prometheus.Counter
}

// NewOrderMetrics регистрирует метрики заказов в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики заказов в указанном registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		operations: register(registerer, "cafe_order_operations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_order_operations_total",
			Help: "Total number of order operations grouped by operation and result.",
		}, []string{"operation", "result"})),
		duration: register(registerer, "cafe_order_operation_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cafe_order_operation_duration_seconds",
			Help:    "Duration of order operations in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"})),
		toadClaims: register(registerer, "cafe_toad_claims_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_toad_claims_total",
			Help: "Toad claim attempts during order creation grouped by outcome.",
		}, []string{"outcome"})),
		inFlight: register(registerer, "cafe_order_operations_in_flight", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cafe_order_operations_in_flight",
			Help: "Number of order operations currently executing.",
		})),
		ordersFreed: register(registerer, "cafe_orders_cleared_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafe_orders_cleared_total",
			Help: "Total number of orders removed by clear-all.",
		})),
	}
}

// Begin отмечает начало операции и возвращает функцию её завершения.
func (m *OrderMetrics) Begin(operation string) func(result string) {
	start := time.Now()
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		m.operations.WithLabelValues(operation, result).Inc()
	}
}

// RecordToadClaim учитывает исход захвата жабы.
func (m *OrderMetrics) RecordToadClaim(claimed bool) {
	outcome := "claimed"
	if !claimed {
		outcome = "exhausted"
	}
	m.toadClaims.WithLabelValues(outcome).Inc()
}

// RecordCleared учитывает заказы, удалённые очисткой.
func (m *OrderMetrics) RecordCleared(removed int64) {
	if removed > 0 {
		m.ordersFreed.Add(float64(removed))
	}
}
