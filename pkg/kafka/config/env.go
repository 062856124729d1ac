package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvSMSTopic      = "KAFKA_SMS_TOPIC"
	EnvSMSDLQTopic   = "KAFKA_SMS_DLQ_TOPIC"
	EnvConsumerGroup = "KAFKA_CONSUMER_GROUP"
	EnvEventSource   = "KAFKA_EVENT_SOURCE"
	EnvSchemaVersion = "KAFKA_EVENT_SCHEMA_VERSION"

	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"

	EnvConsumerStartOffset    = "KAFKA_CONSUMER_START_OFFSET"
	EnvConsumerMaxBytes       = "KAFKA_CONSUMER_MAX_BYTES"
	EnvConsumerMaxWait        = "KAFKA_CONSUMER_MAX_WAIT"
	EnvConsumerCommitInterval = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvConsumerMaxRetries     = "KAFKA_CONSUMER_MAX_RETRIES"
	EnvConsumerRetryBackoff   = "KAFKA_CONSUMER_RETRY_BACKOFF"

	EnvEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)

// envReader falls back to the default for unset variables and records a
// problem for set ones that do not parse.
type envReader struct {
	problems []string
}

func (r *envReader) text(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
