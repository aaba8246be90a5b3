package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	InvoicesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "Invoices created by type",
		},
		[]string{"type"},
	)

	PaymentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_recorded_total",
			Help: "Payments recorded by method",
		},
		[]string{"method"},
	)

	PaymentAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payment_amount_total",
			Help: "Sum of recorded payment amounts by method",
		},
		[]string{"method"},
	)

	StockDeductions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_deductions_total",
			Help: "Successful batch deductions",
		},
	)

	StockRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_rejections_total",
			Help: "Rejected stock operations by reason",
		},
		[]string{"reason"},
	)
)
