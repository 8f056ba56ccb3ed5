package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prudhvinik1/intakesync/internal/models"
)

var (
	namespace = "intakesync"
	subsystem = "sync"

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "submissions_total",
			Help:      "Client records submitted locally, by result",
		},
		[]string{"result"},
	)

	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Reconciliation cycles started, by trigger",
		},
		[]string{"trigger"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a reconciliation cycle in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_total",
			Help:      "Queue items processed, by outcome",
		},
		[]string{"outcome"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Queue items by status after the last cycle",
		},
		[]string{"status"},
	)

	online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "online",
			Help:      "Connectivity state (0=offline, 1=online)",
		},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Duration of intake API requests in seconds",
		},
		[]string{"operation", "code"},
	)
)

func RecordSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

func RecordCycle(trigger string, d time.Duration) {
	cyclesTotal.WithLabelValues(trigger).Inc()
	cycleDuration.Observe(d.Seconds())
}

// RecordItem counts one processed queue item. outcome is synced, retry,
// exhausted or auth.
func RecordItem(outcome string) {
	itemsTotal.WithLabelValues(outcome).Inc()
}

func SetQueueDepth(stats models.QueueStats) {
	queueDepth.WithLabelValues(string(models.QueuePending)).Set(float64(stats.Pending))
	queueDepth.WithLabelValues(string(models.QueueSynced)).Set(float64(stats.Synced))
	queueDepth.WithLabelValues(string(models.QueueFailed)).Set(float64(stats.Failed))
}

func SetOnline(isOnline bool) {
	if isOnline {
		online.Set(1)
		return
	}
	online.Set(0)
}

// RecordRemoteRequest observes one API call. code 0 means no response arrived.
func RecordRemoteRequest(operation string, code int, d time.Duration) {
	remoteRequestDuration.WithLabelValues(operation, strconv.Itoa(code)).Observe(d.Seconds())
}
