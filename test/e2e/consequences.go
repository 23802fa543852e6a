package e2e

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/stream"
)

// Consequences represents test assertions (Then phase)
type Consequences struct {
	ctx *TestContext
}

// Expectation is a function that validates test outcomes
type Expectation func(*TestContext) error

func (c *Consequences) Expect(expectations ...Expectation) *Consequences {
	for _, expectation := range expectations {
		if err := expectation(c.ctx); err != nil {
			c.ctx.t.Error(err)
		}
	}
	return c
}

func (c *Consequences) And(expectations ...Expectation) *Consequences {
	return c.Expect(expectations...)
}

func RunSucceeded() Expectation {
	return func(ctx *TestContext) error {
		if ctx.runErr != nil {
			return fmt.Errorf("run failed: %w", ctx.runErr)
		}
		if ctx.summary == nil {
			return fmt.Errorf("run produced no summary")
		}
		return nil
	}
}

// TotalRecordsAtLeast verifies the aggregated record count.
func TotalRecordsAtLeast(min int64) Expectation {
	return func(ctx *TestContext) error {
		if ctx.summary == nil {
			return fmt.Errorf("no summary")
		}
		if ctx.summary.TotalRecords < min {
			return fmt.Errorf("expected at least %d records, got %d", min, ctx.summary.TotalRecords)
		}
		return nil
	}
}

// TotalMatchesPosters verifies the summary is exactly the sum of the posters.
func TotalMatchesPosters() Expectation {
	return func(ctx *TestContext) error {
		if ctx.summary == nil {
			return fmt.Errorf("no summary")
		}
		var sum int64
		for _, ws := range ctx.coordinator.Stats() {
			sum += ws.Total
		}
		if sum != ctx.summary.TotalRecords {
			return fmt.Errorf("summary total %d != sum of posters %d", ctx.summary.TotalRecords, sum)
		}
		return nil
	}
}

// StreamHoldsAllRecords verifies nothing was lost or double counted.
func StreamHoldsAllRecords() Expectation {
	return func(ctx *TestContext) error {
		if ctx.summary == nil {
			return fmt.Errorf("no summary")
		}
		stored := int64(ctx.svc.RecordCount(ctx.streamName))
		if stored != ctx.summary.TotalRecords {
			return fmt.Errorf("stream holds %d records, summary says %d", stored, ctx.summary.TotalRecords)
		}
		return nil
	}
}

func ThroughputConsistent() Expectation {
	return func(ctx *TestContext) error {
		if ctx.summary == nil {
			return fmt.Errorf("no summary")
		}
		rate, ok := ctx.summary.Throughput()
		if !ok {
			return fmt.Errorf("throughput undefined for elapsed %v", ctx.summary.Elapsed)
		}
		want := float64(ctx.summary.TotalRecords) / ctx.summary.Elapsed.Seconds()
		if math.Abs(rate-want) > 1e-9 {
			return fmt.Errorf("records/sec %v != total/elapsed %v", rate, want)
		}
		return nil
	}
}

func ElapsedWithin(min, max time.Duration) Expectation {
	return func(ctx *TestContext) error {
		if ctx.summary == nil {
			return fmt.Errorf("no summary")
		}
		if ctx.summary.Elapsed < min || ctx.summary.Elapsed > max {
			return fmt.Errorf("elapsed %v outside [%v, %v]", ctx.summary.Elapsed, min, max)
		}
		return nil
	}
}

// NoStreamCreated verifies the action issued no create request.
func NoStreamCreated() Expectation {
	return func(ctx *TestContext) error {
		if calls := ctx.svc.CreateCalls() - ctx.createsBefore; calls != 0 {
			return fmt.Errorf("expected no create request, got %d", calls)
		}
		return nil
	}
}

func NoStreamDeleted() Expectation {
	return func(ctx *TestContext) error {
		if calls := ctx.svc.DeleteCalls(); calls != 0 {
			return fmt.Errorf("expected no delete request, got %d", calls)
		}
		return nil
	}
}

func DescribeFailedWithNotFound() Expectation {
	return func(ctx *TestContext) error {
		if !errors.Is(ctx.describeErr, stream.ErrStreamNotFound) {
			return fmt.Errorf("expected stream not found, got %v", ctx.describeErr)
		}
		return nil
	}
}
