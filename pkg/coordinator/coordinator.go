package coordinator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/downfa11-org/stream-poster/pkg/bench"
	"github.com/downfa11-org/stream-poster/pkg/payload"
	"github.com/downfa11-org/stream-poster/pkg/poster"
	"github.com/downfa11-org/stream-poster/pkg/provisioner"
	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/util"
)

type Config struct {
	StreamName   string
	ShardCount   int
	PartitionKey string
	PosterCount  int
	PosterTime   time.Duration
	Quiet        bool
	Codec        payload.Codec
}

// Coordinator attaches to a stream, runs PosterCount posters against it in
// parallel and aggregates their counts once all of them have stopped.
type Coordinator struct {
	svc  stream.Service
	prov *provisioner.Provisioner
	cfg  Config
	out  io.Writer

	posters []*poster.Poster
}

func NewCoordinator(svc stream.Service, prov *provisioner.Provisioner, cfg Config, out io.Writer) *Coordinator {
	if out == nil {
		out = os.Stdout
	}
	return &Coordinator{svc: svc, prov: prov, cfg: cfg, out: out}
}

// PosterName is the display label of the i-th poster.
func PosterName(i int) string {
	return fmt.Sprintf("shard_poster:%d", i)
}

// Run blocks until every poster has stopped. Only provisioning and setup
// errors are returned; poster failures are logged and their counts kept.
func (c *Coordinator) Run(ctx context.Context) (*bench.RunSummary, error) {
	if c.cfg.PosterCount < 1 {
		return nil, fmt.Errorf("poster count must be >= 1, got %d", c.cfg.PosterCount)
	}

	start := time.Now()

	desc, err := c.prov.GetOrCreate(ctx, c.cfg.StreamName, c.cfg.ShardCount)
	if err != nil {
		return nil, fmt.Errorf("get or create stream %s: %w", c.cfg.StreamName, err)
	}

	c.posters = make([]*poster.Poster, 0, c.cfg.PosterCount)
	for i := 0; i < c.cfg.PosterCount; i++ {
		p, err := poster.New(PosterName(i), c.svc, poster.Config{
			StreamName:   c.cfg.StreamName,
			PartitionKey: c.cfg.PartitionKey,
			Duration:     c.cfg.PosterTime,
			Quiet:        c.cfg.Quiet,
			Codec:        c.cfg.Codec,
		})
		if err != nil {
			return nil, err
		}
		c.posters = append(c.posters, p)
	}

	var wg sync.WaitGroup
	for _, p := range c.posters {
		fmt.Fprintf(c.out, "starting:  %s\n", p.Name())
		wg.Add(1)
		go func(p *poster.Poster) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					util.Error("%s crashed: %v", p.Name(), r)
				}
			}()
			if err := p.Run(ctx); err != nil && ctx.Err() == nil {
				util.Error("%s stopped with error: %v", p.Name(), err)
			}
		}(p)
	}
	wg.Wait()

	summary := &bench.RunSummary{
		RunID:      uuid.NewString(),
		StreamName: c.cfg.StreamName,
		ShardCount: desc.ShardCount(),
		StartedAt:  start,
		Elapsed:    time.Since(start),
	}
	summary.Aggregate(c.Stats())
	return summary, nil
}

// Stats reads every poster's counters. Call after Run has returned.
func (c *Coordinator) Stats() []bench.WorkerStat {
	stats := make([]bench.WorkerStat, 0, len(c.posters))
	for _, p := range c.posters {
		stats = append(stats, bench.WorkerStat{
			Name:    p.Name(),
			Total:   p.Total(),
			Failed:  p.Failed(),
			Flushes: p.Flushes(),
		})
	}
	return stats
}
