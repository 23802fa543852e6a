package poster

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/metrics"
	"github.com/downfa11-org/stream-poster/pkg/payload"
	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/pkg/types"
	"github.com/downfa11-org/stream-poster/util"
)

var ErrAlreadyStarted = errors.New("poster already started")

type State int32

const (
	StateInitialized State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Config struct {
	StreamName   string
	PartitionKey string
	Duration     time.Duration
	Quiet        bool
	Codec        payload.Codec
	// Payloads replaces the generated default batch when non-nil.
	Payloads [][]byte
}

// Poster repeatedly submits its default batch to one stream until its
// duration has elapsed. AddRecords and Flush must not be called concurrently
// on the same Poster.
type Poster struct {
	name string
	svc  stream.Service
	cfg  Config

	defaultRecords []types.Record
	pending        []types.Record

	total   atomic.Int64
	failed  atomic.Int64
	flushes atomic.Int64
	state   atomic.Int32
}

// New builds a poster and generates its default batch once. The same
// payloads are resubmitted on every iteration of Run.
func New(name string, svc stream.Service, cfg Config) (*Poster, error) {
	raw := cfg.Payloads
	if raw == nil {
		raw = payload.DefaultBatch(payload.NewRand())
	}

	encoded, err := payload.EncodeBatch(raw, cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("poster %s: %w", name, err)
	}

	records := make([]types.Record, len(encoded))
	for i, data := range encoded {
		records[i] = types.Record{Data: data, PartitionKey: cfg.PartitionKey}
	}

	return &Poster{
		name:           name,
		svc:            svc,
		cfg:            cfg,
		defaultRecords: records,
	}, nil
}

func (p *Poster) Name() string   { return p.name }
func (p *Poster) Total() int64   { return p.total.Load() }
func (p *Poster) Failed() int64  { return p.failed.Load() }
func (p *Poster) Flushes() int64 { return p.flushes.Load() }
func (p *Poster) State() State   { return State(p.state.Load()) }
func (p *Poster) Pending() int   { return len(p.pending) }

// DefaultRecords returns the batch enqueued on every iteration.
func (p *Poster) DefaultRecords() []types.Record {
	return p.defaultRecords
}

// AddRecords appends records to the pending queue.
func (p *Poster) AddRecords(records []types.Record) {
	p.pending = append(p.pending, records...)
}

// Flush submits every pending record in order and empties the queue.
// The returned count includes records the service rejected.
func (p *Poster) Flush(ctx context.Context) int {
	recs := p.pending
	p.pending = nil

	// putRecord logs and counts its own failures; the total counts attempts.
	for _, rec := range recs {
		p.putRecord(ctx, rec)
	}

	p.total.Add(int64(len(recs)))
	if len(recs) > 0 {
		p.flushes.Add(1)
		metrics.Flushes.Inc()
	}
	return len(recs)
}

func (p *Poster) putRecord(ctx context.Context, rec types.Record) (string, error) {
	start := time.Now()
	res, err := p.svc.PutRecord(ctx, p.cfg.StreamName, rec)
	metrics.ObservePut(time.Since(start).Seconds(), err != nil)

	if err != nil {
		p.failed.Add(1)
		util.Warn("%s: put failed: %v", p.name, err)
		return "", err
	}
	if !p.cfg.Quiet {
		util.Info("%s: -= put seqNum: %s", p.name, res.SequenceNumber)
	}
	return res.SequenceNumber, nil
}

// Run enqueues and flushes the default batch until the deadline passes.
// The deadline and ctx are checked only between flushes; a flush in progress
// always completes.
func (p *Poster) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyStarted)
	}
	metrics.ActivePosters.Inc()
	defer func() {
		metrics.ActivePosters.Dec()
		p.state.Store(int32(StateStopped))
	}()

	deadline := time.Now().Add(p.cfg.Duration)
	putCtx := context.WithoutCancel(ctx)

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			util.Info("%s: stopping early: %v", p.name, err)
			return err
		}

		p.AddRecords(p.defaultRecords)
		put := p.Flush(putCtx)

		if !p.cfg.Quiet {
			util.Info("%s: Records Put: %d", p.name, put)
			util.Info("%s: Total Records Put: %d", p.name, p.Total())
		}
	}
	return nil
}
