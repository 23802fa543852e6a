package e2e

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/downfa11-org/stream-poster/pkg/bench"
	"github.com/downfa11-org/stream-poster/pkg/coordinator"
	"github.com/downfa11-org/stream-poster/pkg/provisioner"
	"github.com/downfa11-org/stream-poster/pkg/stream"
)

const defaultPollInterval = 5 * time.Millisecond

// TestContext carries one scenario from Given through Then.
type TestContext struct {
	t *testing.T

	streamName   string
	shardCount   int
	partitionKey string
	posterCount  int
	posterTime   time.Duration
	putLatency   time.Duration

	svc  *stream.MemoryService
	prov *provisioner.Provisioner
	out  bytes.Buffer

	coordinator   *coordinator.Coordinator
	summary       *bench.RunSummary
	runErr        error
	describeErr   error
	createsBefore int64
}

func Given(t *testing.T) *TestContext {
	return &TestContext{
		t:            t,
		streamName:   "e2e-" + uuid.NewString()[:8],
		shardCount:   1,
		partitionKey: "pk",
		posterCount:  1,
		posterTime:   200 * time.Millisecond,
	}
}

func (c *TestContext) WithStream(name string, shards int) *TestContext {
	c.streamName = name
	c.shardCount = shards
	return c
}

func (c *TestContext) WithPartitionKey(key string) *TestContext {
	c.partitionKey = key
	return c
}

func (c *TestContext) WithPosters(count int, runFor time.Duration) *TestContext {
	c.posterCount = count
	c.posterTime = runFor
	return c
}

func (c *TestContext) WithPutLatency(d time.Duration) *TestContext {
	c.putLatency = d
	return c
}

func (c *TestContext) When() *Actions {
	if c.svc == nil {
		c.svc = stream.NewMemoryService(stream.WithPutLatency(c.putLatency))
		c.prov = provisioner.New(c.svc, provisioner.Config{PollInterval: defaultPollInterval, Out: &c.out})
	}
	return &Actions{ctx: c}
}

func (c *TestContext) Cleanup() {
	if c.t.Failed() {
		c.t.Logf("poster output:\n%s", c.out.String())
	}
}
