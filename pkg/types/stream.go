package types

import "time"

// StreamStatus is the lifecycle state reported by the stream service.
type StreamStatus string

const (
	StreamCreating StreamStatus = "CREATING"
	StreamActive   StreamStatus = "ACTIVE"
	StreamDeleting StreamStatus = "DELETING"
	StreamUpdating StreamStatus = "UPDATING"
)

// Shard is one independently ordered partition of a stream.
type Shard struct {
	ID              string `json:"ShardId"`
	StartingHashKey string `json:"StartingHashKey,omitempty"`
	EndingHashKey   string `json:"EndingHashKey,omitempty"`
}

// StreamDescription is the descriptor returned by a describe call.
type StreamDescription struct {
	Name           string       `json:"StreamName"`
	ARN            string       `json:"StreamARN,omitempty"`
	Status         StreamStatus `json:"StreamStatus"`
	Shards         []Shard      `json:"Shards"`
	RetentionHours int          `json:"RetentionPeriodHours,omitempty"`
	CreatedAt      time.Time    `json:"StreamCreationTimestamp,omitempty"`
}

func (d *StreamDescription) IsActive() bool {
	return d != nil && d.Status == StreamActive
}

func (d *StreamDescription) ShardCount() int {
	if d == nil {
		return 0
	}
	return len(d.Shards)
}

// Record is an opaque payload routed to a shard by its partition key.
type Record struct {
	Data         []byte
	PartitionKey string
}

// PutResult is what the service assigns to an accepted record.
type PutResult struct {
	ShardID        string
	SequenceNumber string
}
