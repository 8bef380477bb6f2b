package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_holds_created_total",
			Help: "Seat holds successfully created",
		},
	)

	HoldConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_hold_conflicts_total",
			Help: "Hold attempts rejected because a seat was taken",
		},
	)

	HoldsReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_holds_reclaimed_total",
			Help: "Expired holds swept back to available",
		},
	)

	OrdersPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_orders_paid_total",
			Help: "Orders transitioned to PAID",
		},
	)

	OrdersAutoCanceled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_orders_auto_canceled_total",
			Help: "Stale unpaid orders canceled by the sweeper",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boxoffice_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boxoffice_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
