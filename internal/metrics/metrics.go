package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
)

var (
	analysesDesc = prometheus.NewDesc(
		"sowmatch_analyses_stored",
		"Persisted SOW analyses by organization",
		[]string{"organization"},
		nil,
	)
)

// AnalysisCounter reports how many analyses each organization has stored.
type AnalysisCounter interface {
	CountAnalysesByOrganization(ctx context.Context) (map[string]int64, error)
}

// AnalysisCollector is a custom Prometheus collector that reads analysis
// counts from the store on each scrape.
type AnalysisCollector struct {
	store AnalysisCounter
}

// Describe sends the metric descriptor to the channel.
func (c *AnalysisCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- analysesDesc
}

// Collect queries the store and emits one gauge per organization.
func (c *AnalysisCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.store.CountAnalysesByOrganization(ctx)
	if err != nil {
		slog.Error("failed to collect analysis metrics", "error", err)
		return
	}
	for slug, n := range counts {
		ch <- prometheus.MustNewConstMetric(analysesDesc, prometheus.GaugeValue, float64(n), slug)
	}
}

// Recorder tracks oracle calls, analyses and deliverable generations. It
// satisfies the oracle and engine observer interfaces.
type Recorder struct {
	oracleCalls    *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	analyses       *prometheus.CounterVec
	analysisTime   prometheus.Histogram
	deliverables   *prometheus.CounterVec
	deliverableDur *prometheus.HistogramVec
}

var buckets = []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120}

// NewRecorder creates a Recorder and registers its collectors, plus the
// analysis collector when store is non-nil.
func NewRecorder(reg prometheus.Registerer, store AnalysisCounter) *Recorder {
	r := &Recorder{
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sowmatch_oracle_calls_total",
			Help: "Oracle attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sowmatch_oracle_call_seconds",
			Help:    "Oracle attempt latency",
			Buckets: buckets,
		}, []string{"operation"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sowmatch_analyses_total",
			Help: "Analyze requests by outcome",
		}, []string{"outcome"}),
		analysisTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sowmatch_analysis_seconds",
			Help:    "End-to-end analysis latency",
			Buckets: buckets,
		}),
		deliverables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sowmatch_deliverables_total",
			Help: "Deliverable generations by type and outcome",
		}, []string{"type", "outcome"}),
		deliverableDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sowmatch_deliverable_seconds",
			Help:    "End-to-end deliverable generation latency",
			Buckets: buckets,
		}, []string{"type"}),
	}
	reg.MustRegister(r.oracleCalls, r.oracleLatency, r.analyses, r.analysisTime, r.deliverables, r.deliverableDur)
	if store != nil {
		reg.MustRegister(&AnalysisCollector{store: store})
	}
	return r
}

// ObserveOracleCall records one oracle attempt.
func (r *Recorder) ObserveOracleCall(operation string, kind errs.Kind, elapsed time.Duration) {
	r.oracleCalls.WithLabelValues(operation, string(kind)).Inc()
	r.oracleLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAnalysis records one analyze request.
func (r *Recorder) ObserveAnalysis(outcome errs.Kind, elapsed time.Duration) {
	r.analyses.WithLabelValues(string(outcome)).Inc()
	r.analysisTime.Observe(elapsed.Seconds())
}

// ObserveDeliverable records one deliverable generation.
func (r *Recorder) ObserveDeliverable(t models.DeliverableType, outcome errs.Kind, elapsed time.Duration) {
	r.deliverables.WithLabelValues(string(t), string(outcome)).Inc()
	r.deliverableDur.WithLabelValues(string(t)).Observe(elapsed.Seconds())
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the process-wide recorder with the default registry.
// Must be called once at startup; later calls return the same recorder.
func Init(store AnalysisCounter) *Recorder {
	recorderOnce.Do(func() {
		recorder = NewRecorder(prometheus.DefaultRegisterer, store)
	})
	return recorder
}
