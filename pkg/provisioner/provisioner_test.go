package provisioner_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/provisioner"
	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingService struct {
	*stream.MemoryService
	describeErr error
}

func (f *failingService) DescribeStream(ctx context.Context, name string) (*types.StreamDescription, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.MemoryService.DescribeStream(ctx, name)
}

func newProvisioner(svc stream.Service, out *bytes.Buffer) *provisioner.Provisioner {
	return provisioner.New(svc, provisioner.Config{PollInterval: 5 * time.Millisecond, Out: out})
}

func TestGetOrCreateActiveStreamSkipsCreate(t *testing.T) {
	ctx := context.Background()
	svc := stream.NewMemoryService()
	require.NoError(t, svc.CreateStream(ctx, "ready", 2))
	createsBefore := svc.CreateCalls()

	var out bytes.Buffer
	desc, err := newProvisioner(svc, &out).GetOrCreate(ctx, "ready", 2)
	require.NoError(t, err)

	assert.Equal(t, types.StreamActive, desc.Status)
	assert.Equal(t, createsBefore, svc.CreateCalls(), "no create for an ACTIVE stream")
	assert.Contains(t, out.String(), `"StreamName": "ready"`)
}

func TestGetOrCreateCreatesAndPolls(t *testing.T) {
	ctx := context.Background()
	svc := stream.NewMemoryService(stream.WithActivationPolls(3))

	desc, err := newProvisioner(svc, &bytes.Buffer{}).GetOrCreate(ctx, "fresh", 2)
	require.NoError(t, err)

	assert.Equal(t, types.StreamActive, desc.Status)
	assert.Len(t, desc.Shards, 2)
	assert.EqualValues(t, 1, svc.CreateCalls())
	// initial miss + 3 CREATING polls + the ACTIVE poll
	assert.EqualValues(t, 5, svc.DescribeCalls())
}

func TestGetOrCreateWaitsOnCreatingStream(t *testing.T) {
	ctx := context.Background()
	svc := stream.NewMemoryService(stream.WithActivationPolls(2))
	require.NoError(t, svc.CreateStream(ctx, "warming", 1))

	desc, err := newProvisioner(svc, &bytes.Buffer{}).GetOrCreate(ctx, "warming", 1)
	require.NoError(t, err)
	assert.True(t, desc.IsActive())
	assert.EqualValues(t, 1, svc.CreateCalls())
}

func TestGetOrCreateStalls(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithActivationPolls(100))
	p := provisioner.New(svc, provisioner.Config{PollInterval: time.Millisecond, MaxAttempts: 3, Out: &bytes.Buffer{}})

	_, err := p.GetOrCreate(context.Background(), "stuck", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provisioner.ErrProvisioningStalled))
}

func TestGetOrCreateHonoursContext(t *testing.T) {
	svc := stream.NewMemoryService(stream.WithActivationPolls(1000))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newProvisioner(svc, &bytes.Buffer{}).GetOrCreate(ctx, "slow", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGetOrCreatePropagatesUnexpectedErrors(t *testing.T) {
	boom := errors.New("access denied")
	svc := &failingService{MemoryService: stream.NewMemoryService(), describeErr: boom}

	_, err := newProvisioner(svc, &bytes.Buffer{}).GetOrCreate(context.Background(), "x", 1)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, svc.CreateCalls())
}

func TestDescribeMissingHasNoSideEffects(t *testing.T) {
	svc := stream.NewMemoryService()

	var out bytes.Buffer
	_, err := newProvisioner(svc, &out).Describe(context.Background(), "nope")
	require.Error(t, err)

	assert.True(t, errors.Is(err, stream.ErrStreamNotFound))
	assert.EqualValues(t, 0, svc.CreateCalls())
	assert.EqualValues(t, 0, svc.DeleteCalls())
	assert.Empty(t, out.String())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := stream.NewMemoryService()
	require.NoError(t, svc.CreateStream(ctx, "old", 1))

	p := newProvisioner(svc, &bytes.Buffer{})
	require.NoError(t, p.Delete(ctx, "old"))
	assert.True(t, errors.Is(p.Delete(ctx, "old"), stream.ErrStreamNotFound))
}

func TestFormatDescriptionSortsKeys(t *testing.T) {
	data, err := provisioner.FormatDescription(&types.StreamDescription{
		Name:   "s",
		Status: types.StreamActive,
		Shards: []types.Shard{{ID: "shardId-000000000000"}},
	})
	require.NoError(t, err)

	got := string(data)
	shards := strings.Index(got, `"Shards"`)
	name := strings.Index(got, `"StreamName"`)
	status := strings.Index(got, `"StreamStatus"`)
	assert.True(t, shards < name && name < status, "keys not sorted: %s", got)
}
