package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// HandlerFunc drains one subscribed consumer until the context ends.
type HandlerFunc func(context.Context, *kafka.Consumer)

var (
	registryMu    sync.Mutex
	topicHandlers = make(map[string]HandlerFunc)
	handlerTopics []string
)

// RegisterConsumer binds a handler to a topic. Registration order is the
// start order.
func RegisterConsumer(topic string, handler HandlerFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := topicHandlers[topic]; !dup {
		handlerTopics = append(handlerTopics, topic)
	}
	topicHandlers[topic] = handler
}

// StartConsumers subscribes one consumer per registered topic and runs each
// handler in its own goroutine until the context ends.
func StartConsumers(ctx context.Context) error {
	registryMu.Lock()
	topics := append([]string(nil), handlerTopics...)
	registryMu.Unlock()

	if len(topics) == 0 {
		return fmt.Errorf("[ConsumerFactory] No consumer handlers registered")
	}

	cfg := GetKafkaConfig()

	var wg sync.WaitGroup
	for _, topic := range topics {
		consumer, err := NewConsumer(cfg, topic)
		if err != nil {
			return fmt.Errorf("[ConsumerFactory] Failed to initialize consumer for topic %s: %w", topic, err)
		}

		registryMu.Lock()
		handler := topicHandlers[topic]
		registryMu.Unlock()

		slog.Info("[ConsumerFactory] Starting consumer for topic...",
			slog.String("topic", topic))

		wg.Add(1)
		go func(topic string, consumer *kafka.Consumer) {
			defer wg.Done()
			defer consumer.Close()
			handler(ctx, consumer)
			slog.Info("[ConsumerFactory] Consumer stopped",
				slog.String("topic", topic))
		}(topic, consumer)
	}

	wg.Wait()
	return nil
}
