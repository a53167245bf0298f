package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/pkg/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

// fakeReader hands out its queue, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func (r *fakeReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{Messages: 3, Lag: 1} }
func (r *fakeReader) Close() error             { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testEvent() models.FeedbackEvent {
	rating := 4.5
	return models.FeedbackEvent{
		EventID:   uuid.New(),
		Type:      models.FeedbackRated,
		UserID:    "user_1",
		MovieID:   42,
		Rating:    &rating,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

func encoded(t *testing.T, event models.FeedbackEvent) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.UserID), Value: value}
}

// consumeUntil runs the consumer until want commits were made.
func consumeUntil(t *testing.T, bus *MessageBus, reader *fakeReader, want int, handler EventHandler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.ConsumeFeedback(ctx, handler) }()

	require.Eventually(t, func() bool { return reader.commits() >= want }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewMessageBus_RequiresBrokers(t *testing.T) {
	_, err := NewMessageBus(&config.Config{}, testLogger())
	assert.Error(t, err)
}

func TestPublishFeedback(t *testing.T) {
	writer := &fakeWriter{}
	bus := newMessageBus(DefaultFeedbackTopic, writer, &fakeReader{}, &fakeWriter{}, time.Millisecond, testLogger())

	event := testEvent()
	require.NoError(t, bus.PublishFeedback(context.Background(), event))

	messages := writer.written()
	require.Len(t, messages, 1)
	assert.Equal(t, []byte("user_1"), messages[0].Key)

	headers := map[string]string{}
	for _, h := range messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, event.EventID.String(), headers["event_id"])
	assert.Equal(t, "rated", headers["event_type"])

	var decoded models.FeedbackEvent
	require.NoError(t, json.Unmarshal(messages[0].Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, 4.5, *decoded.Rating)
}

func TestPublishFeedback_WriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	bus := newMessageBus(DefaultFeedbackTopic, writer, &fakeReader{}, &fakeWriter{}, time.Millisecond, testLogger())

	err := bus.PublishFeedback(context.Background(), testEvent())
	assert.Error(t, err)
}

func TestConsumeFeedback_HandlesAndCommits(t *testing.T) {
	event := testEvent()
	reader := &fakeReader{queue: []kafka.Message{encoded(t, event)}}
	dlq := &fakeWriter{}
	bus := newMessageBus(DefaultFeedbackTopic, &fakeWriter{}, reader, dlq, time.Millisecond, testLogger())

	var mu sync.Mutex
	var handled []models.FeedbackEvent
	consumeUntil(t, bus, reader, 1, func(_ context.Context, e models.FeedbackEvent) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e)
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handled, 1)
	assert.Equal(t, event.EventID, handled[0].EventID)
	assert.Empty(t, dlq.written())
}

func TestConsumeFeedback_RetriesThenDLQ(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{encoded(t, testEvent())}}
	dlq := &fakeWriter{}
	bus := newMessageBus(DefaultFeedbackTopic, &fakeWriter{}, reader, dlq, time.Millisecond, testLogger())

	var mu sync.Mutex
	calls := 0
	consumeUntil(t, bus, reader, 1, func(context.Context, models.FeedbackEvent) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("redis down")
	})

	mu.Lock()
	assert.Equal(t, maxRetries+1, calls)
	mu.Unlock()

	parked := dlq.written()
	require.Len(t, parked, 1)
	assert.Equal(t, []byte("user_1"), parked[0].Key)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(parked[0].Value, &body))
	assert.Contains(t, body["error"], "redis down")
}

func TestConsumeFeedback_RetrySucceeds(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{encoded(t, testEvent())}}
	dlq := &fakeWriter{}
	bus := newMessageBus(DefaultFeedbackTopic, &fakeWriter{}, reader, dlq, time.Millisecond, testLogger())

	var mu sync.Mutex
	calls := 0
	consumeUntil(t, bus, reader, 1, func(context.Context, models.FeedbackEvent) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	assert.Empty(t, dlq.written())
}

func TestConsumeFeedback_MalformedMessageGoesToDLQ(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Key: []byte("k"), Value: []byte("not json")}}}
	dlq := &fakeWriter{}
	bus := newMessageBus(DefaultFeedbackTopic, &fakeWriter{}, reader, dlq, time.Millisecond, testLogger())

	called := false
	consumeUntil(t, bus, reader, 1, func(context.Context, models.FeedbackEvent) error {
		called = true
		return nil
	})

	assert.False(t, called)
	parked := dlq.written()
	require.Len(t, parked, 1)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(parked[0].Value, &body))
	assert.Equal(t, "not json", body["original_message"])
}

func TestMessageBusMetrics(t *testing.T) {
	bus := newMessageBus(DefaultFeedbackTopic, &fakeWriter{}, &fakeReader{}, &fakeWriter{}, time.Millisecond, testLogger())

	metrics := bus.GetMetrics()
	assert.Equal(t, int64(3), metrics["messages_read"])
	assert.Equal(t, int64(1), metrics["consumer_lag"])
	assert.NoError(t, bus.Close())
}
