package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystem = "drive_transcriber"

	// Cycle metrics
	cyclesTotal         = "cycles_total"
	cycleFailuresTotal  = "cycle_failures_total"
	cycleSkippedTotal   = "cycle_skipped_total"
	cycleDurationSecond = "cycle_duration_seconds"

	// File metrics
	filesProcessedTotal = "files_processed_total"
	filesFailedTotal    = "files_failed_total"
	archiveRetriesTotal = "archive_retries_total"

	// Notification metrics
	subscribersCount   = "subscribers"
	notificationsDrops = "notifications_dropped_total"

	// Labels
	outcomeLabel = "outcome"
	stageLabel   = "stage"
	triggerLabel = "trigger"
)

// Outcome label values for files_processed_total
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeArchived  = "archived"
)

/**
* Metrics definition
**/
var cyclesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      cyclesTotal,
		Help:      "number of scan cycles started",
	},
	[]string{triggerLabel},
)

var cycleFailuresTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      cycleFailuresTotal,
		Help:      "number of scan cycles that failed before processing files",
	},
)

var cycleSkippedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      cycleSkippedTotal,
		Help:      "number of ticks or triggers skipped because a cycle was in flight",
	},
	[]string{triggerLabel},
)

var cycleDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      cycleDurationSecond,
		Help:      "time spent on one scan cycle",
		Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800},
	},
)

var filesProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      filesProcessedTotal,
		Help:      "number of files handled per outcome",
	},
	[]string{outcomeLabel},
)

var filesFailedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      filesFailedTotal,
		Help:      "number of per-file failures by processing stage",
	},
	[]string{stageLabel},
)

var archiveRetriesTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      archiveRetriesTotal,
		Help:      "number of archival-only retries for completed but unarchived jobs",
	},
)

var subscribersMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      subscribersCount,
		Help:      "number of connected notification subscribers",
	},
)

var notificationsDroppedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      notificationsDrops,
		Help:      "number of notifications dropped for slow subscribers",
	},
)

func IncreaseCyclesTotalMetric(trigger string) {
	cyclesTotalMetric.With(prometheus.Labels{triggerLabel: trigger}).Inc()
}

func IncreaseCycleFailuresMetric() {
	cycleFailuresTotalMetric.Inc()
}

func IncreaseCycleSkippedMetric(trigger string) {
	cycleSkippedTotalMetric.With(prometheus.Labels{triggerLabel: trigger}).Inc()
}

func ObserveCycleDuration(seconds float64) {
	cycleDurationMetric.Observe(seconds)
}

func IncreaseFilesProcessedMetric(outcome string) {
	filesProcessedTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseFilesFailedMetric(stage string) {
	filesFailedTotalMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

func IncreaseArchiveRetriesMetric() {
	archiveRetriesTotalMetric.Inc()
}

func UpdateSubscribersMetric(count int) {
	subscribersMetric.Set(float64(count))
}

func IncreaseNotificationsDroppedMetric() {
	notificationsDroppedMetric.Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(cyclesTotalMetric)
	prometheus.MustRegister(cycleFailuresTotalMetric)
	prometheus.MustRegister(cycleSkippedTotalMetric)
	prometheus.MustRegister(cycleDurationMetric)
	prometheus.MustRegister(filesProcessedTotalMetric)
	prometheus.MustRegister(filesFailedTotalMetric)
	prometheus.MustRegister(archiveRetriesTotalMetric)
	prometheus.MustRegister(subscribersMetric)
	prometheus.MustRegister(notificationsDroppedMetric)
}
