package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	domrepo "FlowMetrics/internal/domain/repository"
	pkgkafka "FlowMetrics/pkg/kafka"
)

// Snapshot is the message published for each freshly computed result.
type Snapshot struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Operation  string      `json:"operation"`
	ComputedAt int64       `json:"computed_at"`
	Payload    interface{} `json:"payload"`
}

// KafkaPublisher implements SnapshotPublisher for Kafka, keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	now      func() time.Time
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, symbol, op string, payload interface{}) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), Snapshot{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Operation:  op,
		ComputedAt: p.now().UnixMilli(),
		Payload:    payload,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops snapshots; used when streaming is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSnapshot(context.Context, string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                                       { return nil }

var (
	_ domrepo.SnapshotPublisher = (*KafkaPublisher)(nil)
	_ domrepo.SnapshotPublisher = NopPublisher{}
)
