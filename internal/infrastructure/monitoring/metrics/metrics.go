// Package metrics exposes Prometheus instrumentation for the build and
// assembly pipelines.  All metrics live on a private registry so tests can
// construct isolated instances without collisions.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ccmodel"

// Buckets tuned to the pipeline: alignments run from milliseconds to the
// 60-second cutoff; assembly of a full release takes up to a few minutes.
var (
	alignDurationBuckets    = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120}
	assemblyDurationBuckets = []float64{1, 5, 15, 30, 60, 180, 600}
)

// Metrics holds every pipeline instrument.  Construct with New and share a
// single instance across the build and assembly services.
type Metrics struct {
	registry *prometheus.Registry

	// Build stage.
	CandidatesEvaluated *prometheus.CounterVec // labels: parent source
	CandidatesAccepted  *prometheus.CounterVec // labels: source variant
	CandidatesRejected  *prometheus.CounterVec // labels: source reason
	ModelsWritten       *prometheus.CounterVec // labels: source
	AlignDuration       prometheus.Histogram
	AlignCacheHits      prometheus.Counter
	AlignCacheMisses    prometheus.Counter
	ActiveWorkers       prometheus.Gauge

	// Assembly stage.
	ModelsAssembled   *prometheus.CounterVec // labels: source variant
	ModelsReused      prometheus.Counter
	ModelsMinted      prometheus.Counter
	ModelsFiltered    *prometheus.CounterVec // labels: reason
	AssemblyDuration  prometheus.Histogram
	ConsistencyAlerts prometheus.Counter
}

// New constructs a Metrics instance with all instruments registered on a
// fresh private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	factory := func(name, help string, labels ...string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, labels)
		reg.MustRegister(v)
		return v
	}

	m.CandidatesEvaluated = factory("candidates_evaluated_total", "Candidate matches examined by the acceptance policy", "source")
	m.CandidatesAccepted = factory("candidates_accepted_total", "Candidate matches accepted as models", "source", "variant")
	m.CandidatesRejected = factory("candidates_rejected_total", "Candidate matches rejected, by reason code", "source", "reason")
	m.ModelsWritten = factory("models_written_total", "Model records persisted by the writer", "source")
	m.ModelsAssembled = factory("models_assembled_total", "Models admitted into the assembled release", "source", "variant")
	m.ModelsFiltered = factory("models_filtered_total", "Models excluded during assembly, by reason", "reason")

	m.AlignDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "align_duration_seconds",
		Help: "Wall-clock duration of a single alignment attempt", Buckets: alignDurationBuckets,
	})
	m.AssemblyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "assembly_duration_seconds",
		Help: "Wall-clock duration of a full assembly pass", Buckets: assemblyDurationBuckets,
	})
	m.AlignCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "align_cache_hits_total",
		Help: "Alignment results served from the cache",
	})
	m.AlignCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "align_cache_misses_total",
		Help: "Alignment cache lookups that required recomputation",
	})
	m.ActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "active_workers",
		Help: "Build workers currently processing a parent batch",
	})
	m.ModelsReused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "models_reused_total",
		Help: "Assembled models that kept a prior public identifier",
	})
	m.ModelsMinted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "models_minted_total",
		Help: "Assembled models assigned a fresh public identifier",
	})
	m.ConsistencyAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "consistency_alerts_total",
		Help: "Advisory row-count mismatches detected after assembly",
	})

	reg.MustRegister(
		m.AlignDuration, m.AssemblyDuration,
		m.AlignCacheHits, m.AlignCacheMisses,
		m.ActiveWorkers,
		m.ModelsReused, m.ModelsMinted, m.ConsistencyAlerts,
	)
	return m
}

// CacheHit records one alignment cache hit.  Together with CacheMiss it lets
// a Metrics instance observe the caching aligner directly.
func (m *Metrics) CacheHit() { m.AlignCacheHits.Inc() }

// CacheMiss records one alignment cache miss.
func (m *Metrics) CacheMiss() { m.AlignCacheMisses.Inc() }

// Handler returns an HTTP handler serving the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve runs a metrics HTTP server on addr until ctx is cancelled.  The
// server shuts down gracefully; errors after shutdown are discarded.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Timer measures a duration into a histogram.
type Timer struct {
	h     prometheus.Histogram
	start time.Time
}

// NewTimer starts a Timer recording into h.
func NewTimer(h prometheus.Histogram) *Timer {
	return &Timer{h: h, start: time.Now()}
}

// ObserveDuration records the elapsed time since the Timer was started.
func (t *Timer) ObserveDuration() {
	if t.h == nil {
		return
	}
	t.h.Observe(time.Since(t.start).Seconds())
}
