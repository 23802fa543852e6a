package bench_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/bench"
)

func TestAggregate(t *testing.T) {
	s := &bench.RunSummary{}
	s.Aggregate([]bench.WorkerStat{
		{Name: "shard_poster:0", Total: 27, Failed: 1},
		{Name: "shard_poster:1", Total: 18},
		{Name: "shard_poster:2", Total: 0},
	})

	if s.TotalRecords != 45 {
		t.Errorf("TotalRecords = %d; want 45", s.TotalRecords)
	}
	if s.FailedRecords != 1 {
		t.Errorf("FailedRecords = %d; want 1", s.FailedRecords)
	}
}

func TestThroughput(t *testing.T) {
	tests := []struct {
		total   int64
		elapsed time.Duration
		want    float64
		ok      bool
	}{
		{90, 2 * time.Second, 45, true},
		{9, 1500 * time.Millisecond, 6, true},
		{100, 0, 0, false},
		{100, -time.Second, 0, false},
	}

	for _, tt := range tests {
		s := &bench.RunSummary{TotalRecords: tt.total, Elapsed: tt.elapsed}
		got, ok := s.Throughput()
		if ok != tt.ok {
			t.Errorf("Throughput(%d, %v) ok = %v; want %v", tt.total, tt.elapsed, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Throughput(%d, %v) = %v; want %v", tt.total, tt.elapsed, got, tt.want)
		}
	}
}

func TestPrintSummaryTo(t *testing.T) {
	s := &bench.RunSummary{Elapsed: 2 * time.Second}
	s.Aggregate([]bench.WorkerStat{
		{Name: "shard_poster:0", Total: 18, Flushes: 2},
		{Name: "shard_poster:1", Total: 9, Failed: 2, Flushes: 1},
	})

	var buf bytes.Buffer
	bench.PrintSummaryTo(&buf, s)
	got := buf.String()

	for _, keyword := range []string{
		"-=> Exiting Poster Main <=-",
		"Total Records: 27",
		"Failed Records: 2",
		"Total Time: 2.000",
		"Records / sec: 13.50",
		"shard_poster:1",
	} {
		if !strings.Contains(got, keyword) {
			t.Errorf("Output missing %q:\n%s", keyword, got)
		}
	}
}

func TestPrintSummaryZeroElapsed(t *testing.T) {
	var buf bytes.Buffer
	bench.PrintSummaryTo(&buf, &bench.RunSummary{TotalRecords: 9})

	got := buf.String()
	if !strings.Contains(got, "Records / sec: undefined") {
		t.Errorf("expected undefined throughput, got:\n%s", got)
	}
	if strings.Contains(got, "Failed Records") {
		t.Error("Failed Records should be omitted when nothing failed")
	}
}

func TestSaveResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	s := &bench.RunSummary{RunID: "run-1", StreamName: "s", TotalRecords: 18, Elapsed: 3 * time.Second}

	if err := bench.SaveResult(path, s); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if decoded["records_per_sec"] != 6.0 {
		t.Errorf("records_per_sec = %v; want 6", decoded["records_per_sec"])
	}
	if decoded["duration_seconds"] != 3.0 {
		t.Errorf("duration_seconds = %v; want 3", decoded["duration_seconds"])
	}
}
