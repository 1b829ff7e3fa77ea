package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noticeboard_feed_clients",
		Help: "Current number of live feed connections (SSE and WebSocket)",
	})

	NoticesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_notices_created_total",
		Help: "Total notices persisted",
	})

	NoticesStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noticeboard_notices_stored",
		Help: "Number of notices currently stored",
	})

	ProfilesOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noticeboard_profiles_online",
		Help: "Number of profiles whose status is online",
	})

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_auth_attempts_total",
		Help: "Identity operations by kind and result",
	}, []string{"op", "result"})

	SnapshotBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "noticeboard_snapshot_build_duration_seconds",
		Help:    "Time to load and broadcast a notice snapshot",
		Buckets: prometheus.DefBuckets,
	})

	AnalyzerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_analyzer_requests_total",
		Help: "Analyzer requests by result",
	}, []string{"result"})

	AnalyzerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "noticeboard_analyzer_request_duration_seconds",
		Help:    "Time spent classifying a notice",
		Buckets: prometheus.DefBuckets,
	})
)

func SetFeedClients(count int) {
	if count < 0 {
		count = 0
	}
	FeedClients.Set(float64(count))
}

func IncNoticesCreated() {
	NoticesCreated.Inc()
}

func SetNoticesStored(count int64) {
	if count < 0 {
		count = 0
	}
	NoticesStored.Set(float64(count))
}

func SetProfilesOnline(count int64) {
	if count < 0 {
		count = 0
	}
	ProfilesOnline.Set(float64(count))
}

func IncAuthAttempt(op, result string) {
	AuthAttempts.WithLabelValues(label(op), label(result)).Inc()
}

func ObserveSnapshotBuild(duration time.Duration) {
	SnapshotBuildDuration.Observe(duration.Seconds())
}

func ObserveAnalyzerRequest(result string, duration time.Duration) {
	AnalyzerRequests.WithLabelValues(label(result)).Inc()
	AnalyzerDuration.Observe(duration.Seconds())
}

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
