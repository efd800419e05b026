package kafka_client

import "time"

const (
	KAFKA_TOPIC_RAW_ARTICLES   = "raw-articles"     // (url, title, text) tuples from upstream collectors
	KAFKA_TOPIC_ANALYSIS_READY = "analysis-packets" // notifications for report/alert consumers
)

const (
	MAX_RETRIES = 5
	RETRY_DELAY = 2 * time.Second
)
