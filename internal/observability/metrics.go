package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourstay_bookings_created_total",
			Help: "Booking creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	LockConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tourstay_booking_lock_conflicts_total",
			Help: "Booking creations rejected due to slot lock contention",
		},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourstay_emails_sent_total",
			Help: "Transactional emails by delivery path",
		},
		[]string{"path"},
	)

	EmailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tourstay_email_queue_depth",
			Help: "Length of the durable email retry queue",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourstay_cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tourstay_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
