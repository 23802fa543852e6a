package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/downfa11-org/stream-poster/util"
)

const sep = "========================================"

// WorkerStat is one poster's counters after it stopped.
type WorkerStat struct {
	Name    string `json:"name"`
	Total   int64  `json:"total_records"`
	Failed  int64  `json:"failed_records"`
	Flushes int64  `json:"flushes"`
}

// RunSummary aggregates every poster of a run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	StreamName    string        `json:"stream_name"`
	ShardCount    int           `json:"shard_count"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"-"`
	TotalRecords  int64         `json:"total_records"`
	FailedRecords int64         `json:"failed_records"`
	Workers       []WorkerStat  `json:"workers"`
}

// Aggregate sums the per-worker counters into the summary totals.
func (s *RunSummary) Aggregate(stats []WorkerStat) {
	s.Workers = stats
	s.TotalRecords = 0
	s.FailedRecords = 0
	for _, ws := range stats {
		s.TotalRecords += ws.Total
		s.FailedRecords += ws.Failed
	}
}

// Throughput is records per second. ok is false when elapsed is not positive.
func (s *RunSummary) Throughput() (rate float64, ok bool) {
	seconds := s.Elapsed.Seconds()
	if seconds <= 0 {
		return math.Inf(1), false
	}
	return float64(s.TotalRecords) / seconds, true
}

func (s *RunSummary) throughputString() string {
	rate, ok := s.Throughput()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.2f", rate)
}

// PrintSummaryTo writes the end-of-run report.
func PrintSummaryTo(w io.Writer, s *RunSummary) {
	fmt.Fprintln(w, "-=> Exiting Poster Main <=-")
	fmt.Fprintf(w, "  Total Records: %d\n", s.TotalRecords)
	if s.FailedRecords > 0 {
		fmt.Fprintf(w, " Failed Records: %d\n", s.FailedRecords)
	}
	fmt.Fprintf(w, "     Total Time: %.3f\n", s.Elapsed.Seconds())
	fmt.Fprintf(w, "  Records / sec: %s\n", s.throughputString())

	if len(s.Workers) > 1 {
		fmt.Fprintln(w, sep)
		fmt.Fprintln(w, "Poster Breakdown:")
		for _, ws := range s.Workers {
			fmt.Fprintf(w, "  %-20s records=%d failed=%d flushes=%d\n", ws.Name, ws.Total, ws.Failed, ws.Flushes)
		}
		fmt.Fprintln(w, sep)
	}
}

type runResult struct {
	*RunSummary
	ElapsedSeconds float64  `json:"duration_seconds"`
	RecordsPerSec  *float64 `json:"records_per_sec"`
}

// SaveResult writes the summary as JSON to path.
func SaveResult(path string, s *RunSummary) error {
	res := runResult{RunSummary: s, ElapsedSeconds: s.Elapsed.Seconds()}
	if rate, ok := s.Throughput(); ok {
		res.RecordsPerSec = &rate
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save run result to %s: %w", path, err)
	}
	util.Info("run result saved to %s", path)
	return nil
}
