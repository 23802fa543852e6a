package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/downfa11-org/stream-poster/util"
)

func init() {
	prometheus.MustRegister(RecordsPut, PutFailures, PutLatency, Flushes, ActivePosters)
}

// StartMetricsServer serves /metrics on port in the background.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		util.Info("[METRICS] Prometheus exporter listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Error("[METRICS] Failed to start metrics server: %v", err)
		}
	}()
	return srv
}

// ObservePut records one submission attempt.
func ObservePut(elapsedSeconds float64, failed bool) {
	RecordsPut.Inc()
	PutLatency.Observe(elapsedSeconds)
	if failed {
		PutFailures.Inc()
	}
}
