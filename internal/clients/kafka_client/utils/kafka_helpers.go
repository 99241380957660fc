package utils

import (
	"encoding/json"
	"log/slog"
)

// DecodeJSON unmarshals a consumed payload, logging malformed input so a bad
// producer shows up in the logs instead of silently dropped messages.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("[KafkaUtils] Failed to decode payload",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// LogConsumerError records a consumer loop error. Nil errors are ignored so
// callers can pass through without checking first.
func LogConsumerError(err error) {
	if err == nil {
		return
	}
	slog.Error("[KafkaUtils] Kafka Consumer Error",
		slog.String("error", err.Error()))
}
