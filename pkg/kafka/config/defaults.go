package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultSMSTopic      = "medibook.sms.requested"
	DLQSuffix            = ".dlq"
	DefaultConsumerGroup = "medibook-notifier"
	DefaultEventSource   = "medibook-bookings"
	DefaultSchemaVersion = "1"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset    = -2 // oldest
	DefaultConsumerMaxBytes       = 1 << 20
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = time.Second
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryBackoff   = 500 * time.Millisecond

	DefaultEnableMiddleware = true
)
