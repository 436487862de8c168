package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

func TestMapMessageToRawRequest(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"product":"CDI"}`),
		Topic:     "drought-analysis-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "requested_by", Value: []byte("portal")},
		},
	}

	raw := (&Reader{}).mapMessage(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"product":"CDI"}`, string(raw.Value))
	assert.Equal(t, "drought-analysis-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "portal", raw.Headers["requested_by"])
	assert.NotNil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	result := domain.RunResult{
		RunID:       "run-1",
		Product:     "CDI",
		RegionKey:   "52.5000_1.2500",
		ArtifactKey: "cdi_20200101-20200331_52.5000_1.2500.csv",
		Status:      domain.RunCompleted,
		Records:     9,
		CompletedAt: now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte(result.ArtifactKey), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"completed"`)
	assert.Len(t, msg.Headers, 3)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("completed"), msg.Headers[0].Value)
	assert.Equal(t, "product", msg.Headers[1].Key)
	assert.Equal(t, []byte("CDI"), msg.Headers[1].Value)
	assert.Equal(t, "completed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessageFallsBackToRunID(t *testing.T) {
	result := domain.RunResult{
		RunID:   "run-2",
		Product: "SPI",
		Status:  domain.RunFailed,
		Error:   "acquisition failed",
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)
	assert.Equal(t, []byte("run-2"), msg.Key)
	assert.Contains(t, string(msg.Value), `"error":"acquisition failed"`)
}
