package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	ktypes "github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	"github.com/downfa11-org/stream-poster/pkg/types"
)

// KinesisAPI is the subset of the Kinesis client used by KinesisService.
type KinesisAPI interface {
	DescribeStream(ctx context.Context, in *kinesis.DescribeStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamOutput, error)
	CreateStream(ctx context.Context, in *kinesis.CreateStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.CreateStreamOutput, error)
	DeleteStream(ctx context.Context, in *kinesis.DeleteStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DeleteStreamOutput, error)
	PutRecord(ctx context.Context, in *kinesis.PutRecordInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordOutput, error)
}

type KinesisOptions struct {
	Region   string
	Endpoint string
}

// KinesisService talks to Amazon Kinesis Data Streams (or a compatible
// endpoint such as localstack).
type KinesisService struct {
	api KinesisAPI
}

// NewKinesisService loads the default AWS credential chain and builds a client.
func NewKinesisService(ctx context.Context, opts KinesisOptions) (*KinesisService, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := kinesis.NewFromConfig(cfg, func(o *kinesis.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewKinesisServiceFromAPI(client), nil
}

func NewKinesisServiceFromAPI(api KinesisAPI) *KinesisService {
	return &KinesisService{api: api}
}

func (k *KinesisService) DescribeStream(ctx context.Context, name string) (*types.StreamDescription, error) {
	var (
		desc      *types.StreamDescription
		lastShard *string
	)

	for {
		out, err := k.api.DescribeStream(ctx, &kinesis.DescribeStreamInput{
			StreamName:            aws.String(name),
			ExclusiveStartShardId: lastShard,
		})
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, translateKinesisError(err))
		}
		if out.StreamDescription == nil {
			return nil, fmt.Errorf("describe %s: empty stream description", name)
		}

		sd := out.StreamDescription
		if desc == nil {
			desc = &types.StreamDescription{
				Name:   aws.ToString(sd.StreamName),
				ARN:    aws.ToString(sd.StreamARN),
				Status: types.StreamStatus(sd.StreamStatus),
			}
			if sd.RetentionPeriodHours != nil {
				desc.RetentionHours = int(*sd.RetentionPeriodHours)
			}
			if sd.StreamCreationTimestamp != nil {
				desc.CreatedAt = *sd.StreamCreationTimestamp
			}
		}

		for _, sh := range sd.Shards {
			shard := types.Shard{ID: aws.ToString(sh.ShardId)}
			if sh.HashKeyRange != nil {
				shard.StartingHashKey = aws.ToString(sh.HashKeyRange.StartingHashKey)
				shard.EndingHashKey = aws.ToString(sh.HashKeyRange.EndingHashKey)
			}
			desc.Shards = append(desc.Shards, shard)
		}

		if !aws.ToBool(sd.HasMoreShards) || len(sd.Shards) == 0 {
			return desc, nil
		}
		lastShard = sd.Shards[len(sd.Shards)-1].ShardId
	}
}

func (k *KinesisService) CreateStream(ctx context.Context, name string, shardCount int) error {
	_, err := k.api.CreateStream(ctx, &kinesis.CreateStreamInput{
		StreamName: aws.String(name),
		ShardCount: aws.Int32(int32(shardCount)),
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, translateKinesisError(err))
	}
	return nil
}

func (k *KinesisService) DeleteStream(ctx context.Context, name string) error {
	_, err := k.api.DeleteStream(ctx, &kinesis.DeleteStreamInput{
		StreamName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, translateKinesisError(err))
	}
	return nil
}

func (k *KinesisService) PutRecord(ctx context.Context, name string, rec types.Record) (types.PutResult, error) {
	out, err := k.api.PutRecord(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(name),
		Data:         rec.Data,
		PartitionKey: aws.String(rec.PartitionKey),
	})
	if err != nil {
		return types.PutResult{}, fmt.Errorf("put to %s: %w", name, translateKinesisError(err))
	}
	return types.PutResult{
		ShardID:        aws.ToString(out.ShardId),
		SequenceNumber: aws.ToString(out.SequenceNumber),
	}, nil
}

// translateKinesisError maps service exceptions onto this package's sentinels,
// keeping the original error in the chain.
func translateKinesisError(err error) error {
	var notFound *ktypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return errors.Join(ErrStreamNotFound, err)
	}
	var inUse *ktypes.ResourceInUseException
	if errors.As(err, &inUse) {
		return errors.Join(ErrStreamExists, err)
	}
	var throttled *ktypes.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return errors.Join(ErrThroughputExceeded, err)
	}
	return err
}
