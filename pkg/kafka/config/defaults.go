package kafka_config

import "time"

const (
	DefaultTopic = "sicakap.desk.events"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"

	DefaultPublishBuffer  = 256
	DefaultPublishTimeout = 5 * time.Second
)
