package kafka_client

import "time"

const (
	KAFKA_TOPIC_INBOUND_MESSAGES = "inbound-messages" // raw chat and platform messages awaiting analysis
	KAFKA_TOPIC_ANALYSIS_RESULTS = "analysis-results" // completed analysis results for downstream consumers
)

const (
	BATCH_SIZE    = 50
	BATCH_TIMEOUT = 5 * time.Second
	MAX_RETRIES   = 5
	RETRY_DELAY   = 2 * time.Second
)
