package kafka_client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// OffsetCommitter commits consumed offsets with retries. Commits happen only
// after the batch holding the message has been persisted.
type OffsetCommitter struct {
	ctx      context.Context
	consumer *kafka.Consumer
}

func NewOffsetCommitter(ctx context.Context, consumer *kafka.Consumer) *OffsetCommitter {
	return &OffsetCommitter{ctx: ctx, consumer: consumer}
}

func (oc *OffsetCommitter) Commit(msg *kafka.Message) error {
	if oc.consumer == nil {
		return errors.New("[OffsetCommitter] Consumer has not been initialized")
	}

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		if err := oc.ctx.Err(); err != nil {
			slog.Warn("[OffsetCommitter] Context cancelled, stopping commit")
			return err
		}

		_, err := oc.consumer.CommitMessage(msg)
		if err == nil {
			return nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrAllBrokersDown {
			slog.Error("[OffsetCommitter] All brokers are down, aborting commit")
			return err
		}

		slog.Warn("[OffsetCommitter] Commit failed, retrying...",
			slog.Int("attempt", attempt),
			slog.Int64("offset", int64(msg.TopicPartition.Offset)),
			slog.Int("partition", int(msg.TopicPartition.Partition)),
			slog.String("error", err.Error()))
		time.Sleep(RETRY_DELAY)
	}

	return fmt.Errorf("[OffsetCommitter] Commit failed after %d retries", MAX_RETRIES)
}
