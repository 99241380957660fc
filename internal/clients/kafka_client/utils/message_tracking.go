package utils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// messageMap holds the Kafka message for each in-flight request id so offsets
// can be committed after the batch that contains the request is persisted.
var messageMap sync.Map

func TrackMessage(requestID string, msg *kafka.Message) {
	messageMap.Store(requestID, msg)
}

func GetMessageForRequest(requestID string) (*kafka.Message, bool) {
	msg, ok := messageMap.Load(requestID)
	if !ok {
		return nil, false
	}
	messageMap.Delete(requestID)
	return msg.(*kafka.Message), true
}
