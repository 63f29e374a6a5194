package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	// Notifications are small and best-effort: leader ack, short batches.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 5 * time.Millisecond
	DefaultProducerRequireAcks  = 1
	DefaultProducerCompression  = "lz4"

	// The relay only forwards live traffic to connected clients.
	DefaultConsumerStartOffset    = -1 // newest
	DefaultConsumerMaxBytes       = 1024 * 1024
	DefaultConsumerMaxWait        = 250 * time.Millisecond
	DefaultConsumerCommitInterval = 1 * time.Second
	DefaultConsumerSessionTimeout = 10 * time.Second
	DefaultConsumerMaxRetries     = 1

	DefaultEnableMiddleware = true
)
