package stream

import (
	"context"
	"errors"

	"github.com/downfa11-org/stream-poster/pkg/types"
)

var (
	ErrStreamNotFound     = errors.New("stream not found")
	ErrStreamExists       = errors.New("stream already exists")
	ErrThroughputExceeded = errors.New("provisioned throughput exceeded")
)

// Service is the control and data plane of a shard-based stream service.
// Implementations are shared by every poster and must be safe for concurrent use.
type Service interface {
	DescribeStream(ctx context.Context, name string) (*types.StreamDescription, error)
	CreateStream(ctx context.Context, name string, shardCount int) error
	DeleteStream(ctx context.Context, name string) error
	PutRecord(ctx context.Context, name string, rec types.Record) (types.PutResult, error)
}
