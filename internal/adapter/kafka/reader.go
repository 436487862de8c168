// Package kafka adapts the pipeline's batch extract and load ports onto
// Kafka consumer groups and producers.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/droughtwatch/cdi-etl/internal/config"
	"github.com/droughtwatch/cdi-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes analysis requests from the source topic as part of a
// consumer group. It implements pipeline.BatchExtractor. Offsets are
// committed only through the per-message Commit hooks, after a result has
// been produced for the request.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.SourceTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Reader{reader: r, logger: logger}
}

// ExtractBatch fetches up to batchSize messages. It blocks on the first
// message and then drains whatever else is immediately available, so a quiet
// topic yields small batches rather than stalling until batchSize arrives.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRequest, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	batch := []domain.RawRequest{r.mapMessage(msg)}

	for len(batch) < batchSize && r.reader.Lag() > 0 {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			break
		}
		batch = append(batch, r.mapMessage(msg))
	}
	return batch, nil
}

func (r *Reader) mapMessage(msg kafkago.Message) domain.RawRequest {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawRequest{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
