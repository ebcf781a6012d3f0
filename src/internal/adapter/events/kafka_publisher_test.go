package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	err    error
	calls  int
	sent   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent(aggregate string) domain.Event {
	return domain.Event{
		ID:          "evt-" + aggregate,
		Type:        domain.EventDocumentPosted,
		CompanyID:   "company-1",
		AggregateID: aggregate,
		OccurredAt:  time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherPublishKeysByAggregate(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(writer, BreakerSettings{})

	err := publisher.Publish(context.Background(), sampleEvent("doc-1"), sampleEvent("doc-2"))
	require.NoError(t, err)
	require.Len(t, writer.sent, 2)

	assert.Equal(t, "doc-1", string(writer.sent[0].Key))
	assert.Equal(t, string(domain.EventDocumentPosted), string(writer.sent[0].Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(writer.sent[1].Value, &decoded))
	assert.Equal(t, "evt-doc-2", decoded.ID)
	assert.Equal(t, "company-1", decoded.CompanyID)
}

func TestKafkaPublisherPublishNothing(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(writer, BreakerSettings{})

	require.NoError(t, publisher.Publish(context.Background()))
	assert.Zero(t, writer.calls)
}

func TestKafkaPublisherBreakerOpensAfterFailures(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	publisher := newKafkaPublisher(writer, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := publisher.Publish(ctx, sampleEvent("doc-1"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublisherUnavailable)
	}

	err := publisher.Publish(ctx, sampleEvent("doc-1"))
	assert.ErrorIs(t, err, ErrPublisherUnavailable)
	assert.Equal(t, 2, writer.calls, "open breaker must not reach the writer")
}

func TestKafkaPublisherClose(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, newKafkaPublisher(writer, BreakerSettings{}).Close())
	assert.True(t, writer.closed)
}
