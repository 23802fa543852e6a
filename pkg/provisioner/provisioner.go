package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/pkg/types"
	"github.com/downfa11-org/stream-poster/util"
)

const DefaultPollInterval = 500 * time.Millisecond

var ErrProvisioningStalled = errors.New("stream did not become ACTIVE")

type Config struct {
	// PollInterval is the sleep between status checks while waiting for ACTIVE.
	PollInterval time.Duration
	// MaxAttempts bounds the number of status checks. Zero waits forever.
	MaxAttempts int
	// Out receives the JSON stream descriptors. Defaults to stdout.
	Out io.Writer
}

// Provisioner creates, attaches to, describes and deletes streams.
type Provisioner struct {
	svc          stream.Service
	pollInterval time.Duration
	maxAttempts  int
	out          io.Writer
}

func New(svc stream.Service, cfg Config) *Provisioner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Provisioner{
		svc:          svc,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		out:          cfg.Out,
	}
}

// GetOrCreate attaches to name, creating it with shardCount shards when it
// does not exist, and blocks until the stream is ACTIVE.
func (p *Provisioner) GetOrCreate(ctx context.Context, name string, shardCount int) (*types.StreamDescription, error) {
	desc, err := p.svc.DescribeStream(ctx, name)
	if err == nil {
		p.print(desc)
		if desc.IsActive() {
			return desc, nil
		}
		util.Info("stream '%s' is %s, waiting for ACTIVE", name, desc.Status)
		return p.waitActive(ctx, name)
	}
	if !errors.Is(err, stream.ErrStreamNotFound) {
		return nil, err
	}

	util.Info("stream '%s' not found, creating with %d shards", name, shardCount)
	if err := p.svc.CreateStream(ctx, name, shardCount); err != nil {
		if !errors.Is(err, stream.ErrStreamExists) {
			return nil, err
		}
		util.Info("stream '%s' was created concurrently, attaching", name)
	}
	return p.waitActive(ctx, name)
}

func (p *Provisioner) waitActive(ctx context.Context, name string) (*types.StreamDescription, error) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for stream %s: %w", name, ctx.Err())
		case <-timer.C:
		}

		desc, err := p.svc.DescribeStream(ctx, name)
		switch {
		case err == nil && desc.IsActive():
			util.Info("stream '%s' is ACTIVE with %d shards", name, desc.ShardCount())
			return desc, nil
		case err == nil:
			util.Debug("stream '%s' status %s (attempt %d)", name, desc.Status, attempt)
		case errors.Is(err, stream.ErrStreamNotFound):
			// creation not yet visible
			util.Debug("stream '%s' not visible yet (attempt %d)", name, attempt)
		default:
			return nil, err
		}

		if p.maxAttempts > 0 && attempt >= p.maxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrProvisioningStalled, name, attempt)
		}
		timer.Reset(p.pollInterval)
	}
}

// Describe fetches and prints the stream descriptor.
func (p *Provisioner) Describe(ctx context.Context, name string) (*types.StreamDescription, error) {
	desc, err := p.svc.DescribeStream(ctx, name)
	if err != nil {
		return nil, err
	}
	p.print(desc)
	return desc, nil
}

// Delete issues a delete request and returns without waiting for completion.
func (p *Provisioner) Delete(ctx context.Context, name string) error {
	util.Info("deleting stream '%s'", name)
	if err := p.svc.DeleteStream(ctx, name); err != nil {
		return err
	}
	return nil
}

func (p *Provisioner) print(desc *types.StreamDescription) {
	data, err := FormatDescription(desc)
	if err != nil {
		util.Warn("failed to format stream description: %v", err)
		return
	}
	fmt.Fprintln(p.out, string(data))
}

// FormatDescription renders desc as indented JSON with sorted keys.
func FormatDescription(desc *types.StreamDescription) ([]byte, error) {
	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, err
	}
	var sorted map[string]interface{}
	if err := json.Unmarshal(raw, &sorted); err != nil {
		return nil, err
	}
	return json.MarshalIndent(sorted, "", "  ")
}
