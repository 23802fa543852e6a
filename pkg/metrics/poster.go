package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsPut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poster_records_put_total",
		Help: "Total number of records submitted to the stream, successful or not",
	})

	PutFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poster_put_failures_total",
		Help: "Total number of record submissions rejected by the stream service",
	})

	PutLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poster_put_latency_seconds",
		Help:    "Histogram of single record submission latency",
		Buckets: prometheus.DefBuckets,
	})

	Flushes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poster_flushes_total",
		Help: "Total number of pending queue flushes",
	})

	ActivePosters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poster_active_workers",
		Help: "Number of posters currently in their run loop",
	})
)
