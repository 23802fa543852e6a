package stream

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/types"
	"github.com/downfa11-org/stream-poster/util"
)

type memoryShard struct {
	id      string
	start   *big.Int
	end     *big.Int
	mu      sync.Mutex
	seq     uint64
	records []types.Record
}

type memoryStream struct {
	desc         types.StreamDescription
	shards       []*memoryShard
	pendingPolls int
}

// MemoryOption configures a MemoryService.
type MemoryOption func(*MemoryService)

// WithActivationPolls keeps new streams CREATING for n describe calls.
func WithActivationPolls(n int) MemoryOption {
	return func(m *MemoryService) {
		if n < 0 {
			n = 0
		}
		m.activationPolls = n
	}
}

// WithPutLatency delays every PutRecord by d.
func WithPutLatency(d time.Duration) MemoryOption {
	return func(m *MemoryService) { m.putLatency = d }
}

// WithPutFailure installs a hook that may reject a record before it is stored.
func WithPutFailure(fn func(streamName string, rec types.Record) error) MemoryOption {
	return func(m *MemoryService) { m.putFailure = fn }
}

// WithRetentionHours sets the retention reported by describe.
func WithRetentionHours(h int) MemoryOption {
	return func(m *MemoryService) { m.retentionHours = h }
}

// MemoryService is an in-process stream service. Records are kept per shard
// so tests and local dry runs can inspect what was written. A record lands on
// the shard whose hash key range holds the MD5 of its partition key.
type MemoryService struct {
	mu      sync.RWMutex
	streams map[string]*memoryStream

	activationPolls int
	putLatency      time.Duration
	putFailure      func(string, types.Record) error
	retentionHours  int

	createCalls   atomic.Int64
	deleteCalls   atomic.Int64
	describeCalls atomic.Int64
	putCalls      atomic.Int64
}

func NewMemoryService(opts ...MemoryOption) *MemoryService {
	m := &MemoryService{
		streams:        make(map[string]*memoryStream),
		retentionHours: 24,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryService) DescribeStream(ctx context.Context, name string) (*types.StreamDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.describeCalls.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[name]
	if !ok {
		return nil, fmt.Errorf("describe %s: %w", name, ErrStreamNotFound)
	}
	if s.desc.Status == types.StreamCreating {
		if s.pendingPolls <= 0 {
			s.desc.Status = types.StreamActive
		} else {
			s.pendingPolls--
		}
	}

	desc := s.desc
	desc.Shards = append([]types.Shard(nil), s.desc.Shards...)
	return &desc, nil
}

func (m *MemoryService) CreateStream(ctx context.Context, name string, shardCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.createCalls.Add(1)

	if shardCount < 1 {
		return fmt.Errorf("create %s: shard count must be >= 1, got %d", name, shardCount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[name]; ok {
		return fmt.Errorf("create %s: %w", name, ErrStreamExists)
	}

	s := &memoryStream{
		desc: types.StreamDescription{
			Name:           name,
			ARN:            fmt.Sprintf("arn:memory:stream/%s", name),
			Status:         types.StreamCreating,
			RetentionHours: m.retentionHours,
			CreatedAt:      time.Now(),
		},
		pendingPolls: m.activationPolls,
	}
	if m.activationPolls == 0 {
		s.desc.Status = types.StreamActive
	}

	starts, ends := util.SplitHashKeys(shardCount)
	for i := range starts {
		start, end := starts[i], ends[i]
		id := fmt.Sprintf("shardId-%012d", i)
		s.shards = append(s.shards, &memoryShard{id: id, start: start, end: end})
		s.desc.Shards = append(s.desc.Shards, types.Shard{
			ID:              id,
			StartingHashKey: start.String(),
			EndingHashKey:   end.String(),
		})
	}

	m.streams[name] = s
	util.Debug("memory stream %s created with %d shards", name, shardCount)
	return nil
}

func (m *MemoryService) DeleteStream(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.deleteCalls.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, ErrStreamNotFound)
	}
	delete(m.streams, name)
	return nil
}

func (m *MemoryService) PutRecord(ctx context.Context, name string, rec types.Record) (types.PutResult, error) {
	m.putCalls.Add(1)

	if m.putLatency > 0 {
		select {
		case <-time.After(m.putLatency):
		case <-ctx.Done():
			return types.PutResult{}, ctx.Err()
		}
	}

	m.mu.RLock()
	s, ok := m.streams[name]
	var status types.StreamStatus
	if ok {
		status = s.desc.Status
	}
	m.mu.RUnlock()

	if !ok {
		return types.PutResult{}, fmt.Errorf("put to %s: %w", name, ErrStreamNotFound)
	}
	if status != types.StreamActive {
		return types.PutResult{}, fmt.Errorf("put to %s: stream is %s", name, status)
	}
	if m.putFailure != nil {
		if err := m.putFailure(name, rec); err != nil {
			return types.PutResult{}, err
		}
	}

	shard := s.route(util.HashKey(rec.PartitionKey))
	shard.mu.Lock()
	shard.seq++
	seq := shard.seq
	shard.records = append(shard.records, rec)
	shard.mu.Unlock()

	return types.PutResult{
		ShardID:        shard.id,
		SequenceNumber: fmt.Sprintf("%056d", seq),
	}, nil
}

// route picks the shard whose advertised hash key range holds key.
func (s *memoryStream) route(key *big.Int) *memoryShard {
	for _, sh := range s.shards {
		if key.Cmp(sh.start) >= 0 && key.Cmp(sh.end) <= 0 {
			return sh
		}
	}
	return s.shards[len(s.shards)-1]
}

// Records returns a copy of everything stored in the stream, shard by shard.
func (m *MemoryService) Records(name string) map[string][]types.Record {
	m.mu.RLock()
	s, ok := m.streams[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	out := make(map[string][]types.Record, len(s.shards))
	for _, sh := range s.shards {
		sh.mu.Lock()
		out[sh.id] = append([]types.Record(nil), sh.records...)
		sh.mu.Unlock()
	}
	return out
}

// RecordCount is the number of records accepted by the stream.
func (m *MemoryService) RecordCount(name string) int {
	total := 0
	for _, recs := range m.Records(name) {
		total += len(recs)
	}
	return total
}

func (m *MemoryService) CreateCalls() int64   { return m.createCalls.Load() }
func (m *MemoryService) DeleteCalls() int64   { return m.deleteCalls.Load() }
func (m *MemoryService) DescribeCalls() int64 { return m.describeCalls.Load() }
func (m *MemoryService) PutCalls() int64      { return m.putCalls.Load() }
