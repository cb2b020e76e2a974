package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LedgerTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Coin transactions recorded, by transaction type",
		},
		[]string{"type"},
	)

	LedgerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transaction_rejections_total",
			Help: "Coin transactions rejected before write, by reason",
		},
		[]string{"reason"},
	)

	RewardOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_engagement_rewards_total",
			Help: "Engagement reward decisions: applied, skipped or failed",
		},
		[]string{"engagement_type", "outcome"},
	)

	LikeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_activity_like_toggles_total",
			Help: "Like toggles on activities, by resulting action",
		},
		[]string{"action"},
	)

	ActivitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_activities_created_total",
			Help: "Activity feed entries created, by activity type",
		},
		[]string{"activity_type"},
	)

	ActivitiesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_activities_purged_total",
			Help: "Activity feed entries removed by retention cleanup",
		},
	)

	LevelUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_level_ups_total",
			Help: "Profile level increases",
		},
	)
)

// RecordHTTPRequest observes one finished HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
