package coordinator_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/coordinator"
	"github.com/downfa11-org/stream-poster/pkg/provisioner"
	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinator(svc stream.Service, cfg coordinator.Config, out *bytes.Buffer) *coordinator.Coordinator {
	prov := provisioner.New(svc, provisioner.Config{PollInterval: 5 * time.Millisecond, Out: out})
	return coordinator.NewCoordinator(svc, prov, cfg, out)
}

func TestRunAggregatesWorkerTotals(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		svc := stream.NewMemoryService(stream.WithPutLatency(time.Millisecond))
		var out bytes.Buffer
		c := newCoordinator(svc, coordinator.Config{
			StreamName:   "agg",
			ShardCount:   2,
			PartitionKey: "pk",
			PosterCount:  workers,
			PosterTime:   60 * time.Millisecond,
			Quiet:        true,
		}, &out)

		summary, err := c.Run(context.Background())
		require.NoError(t, err)

		var sum int64
		for _, ws := range c.Stats() {
			assert.GreaterOrEqual(t, ws.Total, int64(9), ws.Name)
			sum += ws.Total
		}
		assert.Len(t, summary.Workers, workers)
		assert.Equal(t, sum, summary.TotalRecords)
		assert.EqualValues(t, summary.TotalRecords, svc.RecordCount("agg"))
		assert.EqualValues(t, summary.TotalRecords, svc.PutCalls())

		for i := 0; i < workers; i++ {
			assert.Contains(t, out.String(), "starting:  "+coordinator.PosterName(i))
		}
	}
}

func TestRunCreatesMissingStream(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithActivationPolls(2))
	c := newCoordinator(svc, coordinator.Config{
		StreamName: "new", ShardCount: 3, PartitionKey: "pk", PosterCount: 1, PosterTime: 10 * time.Millisecond, Quiet: true,
	}, &bytes.Buffer{})

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, svc.CreateCalls())
	assert.Equal(t, 3, summary.ShardCount)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunRejectsZeroPosters(t *testing.T) {
	svc := stream.NewMemoryService()
	c := newCoordinator(svc, coordinator.Config{StreamName: "s", ShardCount: 1, PosterCount: 0}, &bytes.Buffer{})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 0, svc.DescribeCalls(), "nothing touched before validation")
}

func TestRunProvisioningFailure(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithActivationPolls(1000))
	prov := provisioner.New(svc, provisioner.Config{PollInterval: time.Millisecond, MaxAttempts: 2, Out: &bytes.Buffer{}})
	c := coordinator.NewCoordinator(svc, prov, coordinator.Config{
		StreamName: "stuck", ShardCount: 1, PartitionKey: "pk", PosterCount: 2, PosterTime: time.Second,
	}, &bytes.Buffer{})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, provisioner.ErrProvisioningStalled))
	assert.EqualValues(t, 0, svc.PutCalls())
}

func TestRunCountsFailedPuts(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithPutFailure(func(_ string, rec types.Record) error {
		if len(rec.Data) == 10 {
			return stream.ErrThroughputExceeded
		}
		return nil
	}))
	c := newCoordinator(svc, coordinator.Config{
		StreamName: "flaky", ShardCount: 1, PartitionKey: "pk", PosterCount: 2, PosterTime: 20 * time.Millisecond, Quiet: true,
	}, &bytes.Buffer{})

	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	// two of the nine default payloads are 10 bytes long
	assert.Equal(t, summary.TotalRecords*2/9, summary.FailedRecords)
	assert.EqualValues(t, summary.TotalRecords-summary.FailedRecords, svc.RecordCount("flaky"))
}

func TestRunCancelled(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithPutLatency(2 * time.Millisecond))
	var out bytes.Buffer
	c := newCoordinator(svc, coordinator.Config{
		StreamName: "cancel", ShardCount: 1, PartitionKey: "pk", PosterCount: 4, PosterTime: time.Minute, Quiet: true,
	}, &out)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	summary, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, summary.TotalRecords%9)
	assert.Equal(t, 4, strings.Count(out.String(), "starting:"))
}
