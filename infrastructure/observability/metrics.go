package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServiceName names the service in logs, metrics and traces.
const ServiceName = "timestretch-api"

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Jobs           *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	DownloadBytes  prometheus.Counter
	ActiveJobs     prometheus.Gauge
	StretchFactors prometheus.Histogram

	// Storage
	ArtifactsSwept prometheus.Counter

	// Idempotency cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector returns the process-wide collector, creating it on first use
// with its own registry so tests do not collide with the default one.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"method", "route"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Processing jobs by outcome",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_download_bytes_total",
			Help:      "Bytes downloaded from source URLs",
		}),
		ActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Pipelines currently running",
		}),
		StretchFactors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stretch_factor",
			Help:      "Requested stretch factors",
			Buckets:   prometheus.LinearBuckets(0.8, 0.05, 10),
		}),
		ArtifactsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_swept_total",
			Help:      "Expired artifacts removed by the janitor",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_cache_hits_total",
			Help:      "Replayed responses served from the idempotency cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_cache_misses_total",
			Help:      "Idempotency keys seen for the first time",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Jobs,
		c.StageDuration,
		c.DownloadBytes,
		c.ActiveJobs,
		c.StretchFactors,
		c.ArtifactsSwept,
		c.CacheHits,
		c.CacheMisses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	globalCollector = c
	return c
}

// ResetForTesting drops the global collector
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// JobStarted marks a pipeline as running.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.ActiveJobs.Inc()
}

// JobFinished counts a job by terminal status.
func (c *Collector) JobFinished(status string) {
	if c == nil {
		return
	}
	c.ActiveJobs.Dec()
	c.Jobs.WithLabelValues(status).Inc()
}

// RecordDownload adds downloaded source bytes.
func (c *Collector) RecordDownload(bytes int64) {
	if c == nil {
		return
	}
	c.DownloadBytes.Add(float64(bytes))
}

// ObserveFactor records a requested stretch factor.
func (c *Collector) ObserveFactor(f float64) {
	if c == nil {
		return
	}
	c.StretchFactors.Observe(f)
}

// CacheHit counts an idempotent replay served from cache.
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// RecordSweep counts artifacts removed by the janitor.
func (c *Collector) RecordSweep(removed int) {
	if c == nil {
		return
	}
	c.ArtifactsSwept.Add(float64(removed))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
