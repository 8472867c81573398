package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Webhooks
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystack_webhook_events_total",
			Help: "Paystack webhook deliveries by event and outcome",
		},
		[]string{"event", "outcome"},
	)
	DepositsCreditedNaira = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deposits_credited_naira_total",
			Help: "Naira credited to wallets from deposits",
		},
	)

	// Money movement
	EmergencyWithdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergency_withdrawals_total",
			Help: "Emergency withdrawals by execution path and outcome",
		},
		[]string{"path", "outcome"}, // procedure|transaction
	)
	CardTokenizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_tokenizations_total",
			Help: "Card tokenization attempts by processor status",
		},
		[]string{"status"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// /metrics handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			WebhookEventsTotal,
			DepositsCreditedNaira,
			EmergencyWithdrawalsTotal,
			CardTokenizationsTotal,
			WorkerQueueDepth,
		)
	})
}
