// Package consumers wires Kafka topics to the analysis pipeline. The inbound
// message consumer reads raw platform messages, analyzes each one, and
// batch-persists the results before committing offsets.
package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/clients/kafka_client"
	kafkautils "github.com/ClaudioL888/empathia/internal/clients/kafka_client/utils"
	"github.com/ClaudioL888/empathia/internal/db"
	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/pipeline"
	"github.com/ClaudioL888/empathia/internal/utils"
)

type inboundEnvelope struct {
	MessageID string `json:"message_id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// MessageConsumer drains the inbound topic through the analysis pipeline.
type MessageConsumer struct {
	pipeline  *pipeline.Pipeline
	store     *db.AnalysisLogStore
	chatStore *db.ChatMessageStore
	cache     *clients.ValkeyClient
	buffer    *utils.BatchBuffer[models.AnalysisResult]
}

func NewMessageConsumer(p *pipeline.Pipeline, store *db.AnalysisLogStore, chatStore *db.ChatMessageStore, cache *clients.ValkeyClient) *MessageConsumer {
	return &MessageConsumer{
		pipeline:  p,
		store:     store,
		chatStore: chatStore,
		cache:     cache,
		buffer:    utils.NewBatchBuffer[models.AnalysisResult](),
	}
}

func (mc *MessageConsumer) Start(ctx context.Context, consumer *kafka.Consumer) {
	iterator := kafka_client.NewMessageIterator(ctx, consumer)
	committer := kafka_client.NewOffsetCommitter(ctx, consumer)

	slog.Info("[MessageConsumer] Listening for messages...")

	ticker := time.NewTicker(kafka_client.BATCH_TIMEOUT)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[MessageConsumer] Stopping consumer...")
			mc.flushBatch(ctx, committer)
			return
		case <-ticker.C:
			go mc.flushBatch(ctx, committer)
		default:
			msg, err := iterator.Next()
			if err != nil {
				kafkautils.LogConsumerError(err)
				continue
			}

			var envelope inboundEnvelope
			if err := kafkautils.DecodeJSON(msg.Value, &envelope); err != nil {
				continue
			}

			if mc.cache != nil && envelope.MessageID != "" && mc.cache.IsProcessed(ctx, envelope.MessageID) {
				slog.Debug("[MessageConsumer] Skipping already processed message",
					slog.String("message_id", envelope.MessageID))
				if err := committer.Commit(msg); err != nil {
					slog.Warn("[MessageConsumer] Failed to commit duplicate offset",
						slog.String("error", err.Error()))
				}
				continue
			}

			result := mc.pipeline.Analyze(ctx, envelope.Text)
			kafkautils.TrackMessage(result.RequestID, msg)
			mc.buffer.Add(*result)

			// Room-scoped messages also land in the chat history so joining
			// members can replay them.
			if mc.chatStore != nil && envelope.RoomID != "" {
				chatMessage := &models.ChatMessage{
					MessageID:         result.RequestID,
					RoomID:            envelope.RoomID,
					UserID:            envelope.UserID,
					Text:              envelope.Text,
					Sentiment:         result.Sentiment.Label,
					CrisisProbability: result.Crisis.Probability,
					CreatedAt:         result.CreatedAt,
				}
				if err := mc.chatStore.Add(ctx, chatMessage); err != nil {
					slog.Warn("[MessageConsumer] Failed to persist chat record",
						slog.String("request_id", result.RequestID),
						slog.String("error", err.Error()))
				}
			}

			if mc.cache != nil && envelope.MessageID != "" {
				if err := mc.cache.MarkProcessed(ctx, envelope.MessageID); err != nil {
					slog.Warn("[MessageConsumer] Failed to mark message processed",
						slog.String("message_id", envelope.MessageID),
						slog.String("error", err.Error()))
				}
			}

			if mc.buffer.Size() >= kafka_client.BATCH_SIZE {
				go mc.flushBatch(ctx, committer)
			}
		}
	}
}

// flushBatch persists the buffered results, publishes them to the results
// topic, and commits the offsets of every message in the batch.
func (mc *MessageConsumer) flushBatch(ctx context.Context, committer *kafka_client.OffsetCommitter) {
	batch := mc.buffer.GetAndClear()
	if len(batch) == 0 {
		return
	}

	slog.Info("[MessageConsumer] Persisting batch",
		slog.Int("batch_size", len(batch)))

	var err error
	for i := 0; i < 3; i++ {
		err = mc.store.SaveResults(ctx, batch)
		if err == nil {
			break
		}
		slog.Warn("[MessageConsumer] Batch persistence failed, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		slog.Error("[MessageConsumer] Dropping batch after persistence retries",
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))
		return
	}

	for _, result := range batch {
		if err := kafka_client.PublishToKafka(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, result.RequestID, result); err != nil {
			slog.Warn("[MessageConsumer] Failed to publish result",
				slog.String("request_id", result.RequestID),
				slog.String("error", err.Error()))
		}

		trackedMsg, found := kafkautils.GetMessageForRequest(result.RequestID)
		if found {
			if err := committer.Commit(trackedMsg); err != nil {
				slog.Warn("[MessageConsumer] Failed to commit offset",
					slog.String("error", err.Error()))
			}
		}
	}
}
