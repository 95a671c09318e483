package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор prometheus метрик сервиса
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration    *prometheus.HistogramVec
	DBOpenConnections  *prometheus.GaugeVec
	DBInUseConnections *prometheus.GaugeVec
	DBIdleConnections  *prometheus.GaugeVec

	ReservationsTotal         *prometheus.CounterVec
	PaymentConfirmationsTotal *prometheus.CounterVec
	ExpiredHoldsTotal         *prometheus.CounterVec

	serviceName string
}

// New создает метрики и регистрирует их в глобальном registry
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry создает метрики и регистрирует их в переданном registry
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		serviceName: serviceName,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"service", "operation"},
		),
		DBOpenConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_open_connections",
				Help: "Number of established connections to the database",
			},
			[]string{"service"},
		),
		DBInUseConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_in_use_connections",
				Help: "Number of connections currently in use",
			},
			[]string{"service"},
		),
		DBIdleConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_idle_connections",
				Help: "Number of idle connections",
			},
			[]string{"service"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_reservations_total",
				Help: "Slot reservation attempts by result",
			},
			[]string{"service", "result"},
		),
		PaymentConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_payment_confirmations_total",
				Help: "Payment confirmations by result",
			},
			[]string{"service", "result"},
		),
		ExpiredHoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_expired_holds_total",
				Help: "Payment holds released by timeout",
			},
			[]string{"service"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBOpenConnections,
		m.DBInUseConnections,
		m.DBIdleConnections,
		m.ReservationsTotal,
		m.PaymentConfirmationsTotal,
		m.ExpiredHoldsTotal,
	)

	return m
}

// ServiceName возвращает имя сервиса, которым помечаются метрики
func (m *Metrics) ServiceName() string {
	return m.serviceName
}

// RecordReservation учитывает попытку резервирования слота
// Безопасен для nil (метрики выключены)
func (m *Metrics) RecordReservation(result string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(m.serviceName, result).Inc()
}

// RecordPaymentConfirmation учитывает попытку подтверждения оплаты
func (m *Metrics) RecordPaymentConfirmation(result string) {
	if m == nil {
		return
	}
	m.PaymentConfirmationsTotal.WithLabelValues(m.serviceName, result).Inc()
}

// RecordExpiredHold учитывает освобождение слота по таймауту оплаты
func (m *Metrics) RecordExpiredHold() {
	if m == nil {
		return
	}
	m.ExpiredHoldsTotal.WithLabelValues(m.serviceName).Inc()
}
