package kafka_client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// MessageIterator yields messages from a subscribed consumer, retrying
// transient read failures. Broker loss aborts immediately.
type MessageIterator struct {
	ctx      context.Context
	consumer *kafka.Consumer
}

func NewMessageIterator(ctx context.Context, consumer *kafka.Consumer) *MessageIterator {
	return &MessageIterator{ctx: ctx, consumer: consumer}
}

func (it *MessageIterator) Next() (*kafka.Message, error) {
	if it.consumer == nil {
		return nil, errors.New("[MessageIterator] Consumer has not been initialized")
	}

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		if err := it.ctx.Err(); err != nil {
			slog.Warn("[MessageIterator] Context cancelled, stopping iterator")
			return nil, err
		}

		msg, err := it.consumer.ReadMessage(-1)
		if err == nil {
			return msg, nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrAllBrokersDown {
			slog.Error("[MessageIterator] All brokers are down, aborting")
			return nil, err
		}

		slog.Warn("[MessageIterator] Read failed, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", MAX_RETRIES),
			slog.String("error", err.Error()))
		time.Sleep(RETRY_DELAY)
	}
	return nil, errors.New("[MessageIterator] Read failed after retries")
}
