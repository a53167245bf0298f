package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/pkg/models"
)

const (
	DefaultFeedbackTopic = "user-feedback"
	DLQSuffix            = "-dlq"
	DefaultConsumerGroup = "cinerank-cache"

	maxRetries = 3
)

// EventHandler processes one feedback event. Returning an error triggers a
// retry; after the last retry the event goes to the dead letter topic.
type EventHandler func(ctx context.Context, event models.FeedbackEvent) error

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

type MessageBus struct {
	topic     string
	writer    messageWriter
	reader    messageReader
	dlqWriter messageWriter
	baseDelay time.Duration
	logger    *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if !cfg.Kafka.Enabled() {
		return nil, errors.New("no Kafka brokers configured")
	}

	topic := cfg.Kafka.Topics.UserFeedback
	if topic == "" {
		topic = DefaultFeedbackTopic
	}
	group := cfg.Kafka.ConsumerGroup
	if group == "" {
		group = DefaultConsumerGroup
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // events of one user stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic + DLQSuffix,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	logger.WithFields(logrus.Fields{
		"brokers": cfg.Kafka.Brokers,
		"topic":   topic,
		"group":   group,
	}).Info("Kafka message bus configured")

	return newMessageBus(topic, writer, reader, dlqWriter, time.Second, logger), nil
}

func newMessageBus(topic string, writer messageWriter, reader messageReader, dlqWriter messageWriter, baseDelay time.Duration, logger *logrus.Logger) *MessageBus {
	return &MessageBus{
		topic:     topic,
		writer:    writer,
		reader:    reader,
		dlqWriter: dlqWriter,
		baseDelay: baseDelay,
		logger:    logger,
	}
}

// PublishFeedback writes an event keyed by user id.
func (mb *MessageBus) PublishFeedback(ctx context.Context, event models.FeedbackEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(ctx, message); err != nil {
		mb.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish feedback event")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.Type,
		"user_id":    event.UserID,
		"topic":      mb.topic,
	}).Debug("Feedback event published")

	return nil
}

// ConsumeFeedback reads events until ctx is done. Offsets are committed once
// an event is handled or parked on the dead letter topic.
func (mb *MessageBus) ConsumeFeedback(ctx context.Context, handler EventHandler) error {
	for {
		message, err := mb.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read message from Kafka")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(mb.baseDelay):
			}
			continue
		}

		var event models.FeedbackEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			mb.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal feedback event")
			if dlqErr := mb.sendToDLQ(ctx, message, err); dlqErr != nil {
				mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
			}
		} else if err := mb.processWithRetry(ctx, event, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to process event after retries")
			if dlqErr := mb.sendToDLQ(ctx, message, err); dlqErr != nil {
				mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
			}
		}

		if err := mb.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			mb.logger.WithError(err).WithField("offset", message.Offset).Warn("Failed to commit offset")
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, event models.FeedbackEvent, handler EventHandler) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"event_id": event.EventID,
				"attempt":  attempt,
				"delay":    delay,
			}).Info("Retrying event processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := handler(ctx, event); err != nil {
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": event.EventID,
				"attempt":  attempt,
			}).Warn("Event processing failed")

			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, message kafka.Message, originalError error) error {
	dlqMessage := map[string]interface{}{
		"original_message": json.RawMessage(message.Value),
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now(),
	}
	if !json.Valid(message.Value) {
		dlqMessage["original_message"] = string(message.Value)
	}

	dlqBytes, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	if err := mb.dlqWriter.WriteMessages(ctx, kafka.Message{
		Key:   message.Key,
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(mb.topic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"key":   string(message.Key),
		"error": originalError.Error(),
	}).Warn("Message sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := mb.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	return errors.Join(errs...)
}

// GetMetrics returns consumer statistics for monitoring.
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	stats := mb.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}
