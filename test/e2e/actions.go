package e2e

import (
	"context"

	"github.com/downfa11-org/stream-poster/pkg/coordinator"
)

// Actions represents test actions (When phase)
type Actions struct {
	ctx *TestContext
}

func (a *Actions) StreamExists() *Actions {
	a.ctx.t.Logf("Creating stream '%s' with %d shards...", a.ctx.streamName, a.ctx.shardCount)

	if err := a.ctx.svc.CreateStream(context.Background(), a.ctx.streamName, a.ctx.shardCount); err != nil {
		a.ctx.t.Fatalf("Failed to create stream: %v", err)
	}
	return a
}

func (a *Actions) RunPosters() *Actions {
	a.ctx.t.Logf("Running %d posters for %v against '%s'...", a.ctx.posterCount, a.ctx.posterTime, a.ctx.streamName)

	a.ctx.createsBefore = a.ctx.svc.CreateCalls()
	a.ctx.coordinator = coordinator.NewCoordinator(a.ctx.svc, a.ctx.prov, coordinator.Config{
		StreamName:   a.ctx.streamName,
		ShardCount:   a.ctx.shardCount,
		PartitionKey: a.ctx.partitionKey,
		PosterCount:  a.ctx.posterCount,
		PosterTime:   a.ctx.posterTime,
		Quiet:        true,
	}, &a.ctx.out)

	a.ctx.summary, a.ctx.runErr = a.ctx.coordinator.Run(context.Background())
	return a
}

func (a *Actions) DescribeOnly() *Actions {
	a.ctx.createsBefore = a.ctx.svc.CreateCalls()
	_, a.ctx.describeErr = a.ctx.prov.Describe(context.Background(), a.ctx.streamName)
	return a
}

func (a *Actions) Then() *Consequences {
	return &Consequences{ctx: a.ctx}
}
