package metrics_test

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func getHistogramCount(h prometheus.Histogram) uint64 {
	m := &dto.Metric{}
	_ = h.Write(m)
	return m.GetHistogram().GetSampleCount()
}

func TestObservePut(t *testing.T) {
	initialPut := getCounterValue(metrics.RecordsPut)
	initialFailed := getCounterValue(metrics.PutFailures)
	initialLatency := getHistogramCount(metrics.PutLatency)

	metrics.ObservePut(0.05, false)
	metrics.ObservePut(0.2, true)

	if got := getCounterValue(metrics.RecordsPut); got != initialPut+2 {
		t.Fatalf("RecordsPut expected %v, got %v", initialPut+2, got)
	}
	if got := getCounterValue(metrics.PutFailures); got != initialFailed+1 {
		t.Fatalf("PutFailures expected %v, got %v", initialFailed+1, got)
	}
	if got := getHistogramCount(metrics.PutLatency); got != initialLatency+2 {
		t.Fatalf("PutLatency count expected %v, got %v", initialLatency+2, got)
	}
}

func TestStartMetricsServer(t *testing.T) {
	srv := metrics.StartMetricsServer(19464)
	defer srv.Close()

	metrics.Flushes.Inc()

	var body string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://127.0.0.1:19464/metrics")
		if err == nil {
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(data)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !strings.Contains(body, "poster_flushes_total") {
		t.Fatalf("metrics output missing poster_flushes_total")
	}
}
