package kafka_config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"medibook/pkg/logger"
)

// Config describes the SMS delivery queue: the booking API publishes
// SMSRequested events to SMSTopic and the notifier consumes them as
// ConsumerGroup, parking undeliverable messages on SMSDLQTopic.
type Config struct {
	Brokers []string

	SMSTopic      string
	SMSDLQTopic   string
	ConsumerGroup string

	// Stamped on every published event as message headers.
	EventSource   string
	SchemaVersion string

	Producer ProducerConfig
	Consumer ConsumerConfig

	EnableMiddleware bool
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all, 0 none, 1 leader
	Compression  string // none|gzip|snappy|lz4|zstd
}

type ConsumerConfig struct {
	StartOffset    int64 // -1 newest, -2 oldest
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

var topicName = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,249}$`)

// Load reads the queue settings from the environment. Unparseable values are
// reported alongside validation failures rather than replaced by defaults.
func Load() (*Config, error) {
	env := &envReader{}

	var brokers []string
	for _, b := range strings.Split(env.text(EnvKafkaBrokers, DefaultKafkaBrokers), ",") {
		brokers = append(brokers, strings.TrimSpace(b))
	}

	topic := env.text(EnvSMSTopic, DefaultSMSTopic)
	cfg := &Config{
		Brokers:       brokers,
		SMSTopic:      topic,
		SMSDLQTopic:   env.text(EnvSMSDLQTopic, topic+DLQSuffix),
		ConsumerGroup: env.text(EnvConsumerGroup, DefaultConsumerGroup),
		EventSource:   env.text(EnvEventSource, DefaultEventSource),
		SchemaVersion: env.text(EnvSchemaVersion, DefaultSchemaVersion),
		Producer: ProducerConfig{
			MaxAttempts:  env.integer(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: env.duration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  env.integer(EnvProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  strings.ToLower(env.text(EnvProducerCompression, DefaultProducerCompression)),
		},
		Consumer: ConsumerConfig{
			StartOffset:    int64(env.integer(EnvConsumerStartOffset, DefaultConsumerStartOffset)),
			MaxBytes:       env.integer(EnvConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:        env.duration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval: env.duration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
			MaxRetries:     env.integer(EnvConsumerMaxRetries, DefaultConsumerMaxRetries),
			RetryBackoff:   env.duration(EnvConsumerRetryBackoff, DefaultConsumerRetryBackoff),
		},
		EnableMiddleware: env.boolean(EnvEnableMiddleware, DefaultEnableMiddleware),
	}

	problems := append(env.problems, cfg.problems()...)
	if len(problems) > 0 {
		return nil, invalid(problems)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if problems := cfg.problems(); len(problems) > 0 {
		return invalid(problems)
	}
	return nil
}

func invalid(problems []string) error {
	return errors.New("kafka configuration invalid: " + strings.Join(problems, "; "))
}

func (cfg *Config) problems() []string {
	var out []string

	if len(cfg.Brokers) == 0 {
		out = append(out, "at least one broker is required")
	}
	for i, b := range cfg.Brokers {
		if b == "" {
			out = append(out, fmt.Sprintf("broker %d is empty", i))
		}
	}

	for _, t := range []struct{ name, value string }{
		{EnvSMSTopic, cfg.SMSTopic},
		{EnvSMSDLQTopic, cfg.SMSDLQTopic},
	} {
		if !topicName.MatchString(t.value) {
			out = append(out, fmt.Sprintf("%s %q is not a valid topic name", t.name, t.value))
		}
	}
	if cfg.SMSTopic == cfg.SMSDLQTopic {
		out = append(out, fmt.Sprintf("%s must differ from %s", EnvSMSDLQTopic, EnvSMSTopic))
	}
	if cfg.ConsumerGroup == "" {
		out = append(out, EnvConsumerGroup+" cannot be empty")
	}
	if cfg.EventSource == "" {
		out = append(out, EnvEventSource+" cannot be empty")
	}
	if cfg.SchemaVersion == "" {
		out = append(out, EnvSchemaVersion+" cannot be empty")
	}

	if _, ok := compressions[cfg.Producer.Compression]; !ok {
		out = append(out, fmt.Sprintf("%s must be one of none|gzip|snappy|lz4|zstd, got %q", EnvProducerCompression, cfg.Producer.Compression))
	}
	if a := cfg.Producer.RequireAcks; a < -1 || a > 1 {
		out = append(out, fmt.Sprintf("%s must be -1, 0 or 1, got %d", EnvProducerRequireAcks, a))
	}
	if o := cfg.Consumer.StartOffset; o != -1 && o != -2 {
		out = append(out, fmt.Sprintf("%s must be -1 (newest) or -2 (oldest), got %d", EnvConsumerStartOffset, o))
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{EnvProducerMaxAttempts, cfg.Producer.MaxAttempts > 0},
		{EnvProducerBatchTimeout, cfg.Producer.BatchTimeout > 0},
		{EnvConsumerMaxBytes, cfg.Consumer.MaxBytes > 0},
		{EnvConsumerMaxWait, cfg.Consumer.MaxWait > 0},
		{EnvConsumerCommitInterval, cfg.Consumer.CommitInterval > 0},
	}
	for _, p := range positive {
		if !p.ok {
			out = append(out, p.name+" must be positive")
		}
	}
	if cfg.Consumer.MaxRetries < 0 {
		out = append(out, EnvConsumerMaxRetries+" cannot be negative")
	}
	if cfg.Consumer.RetryBackoff < 0 {
		out = append(out, EnvConsumerRetryBackoff+" cannot be negative")
	}

	return out
}

var compressions = map[string]struct{}{
	"none": {}, "gzip": {}, "snappy": {}, "lz4": {}, "zstd": {},
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"sms_topic", cfg.SMSTopic,
		"sms_dlq_topic", cfg.SMSDLQTopic,
		"consumer_group", cfg.ConsumerGroup,
		"event_source", cfg.EventSource,
		"schema_version", cfg.SchemaVersion,
		"producer_require_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
		"consumer_retry_backoff", cfg.Consumer.RetryBackoff,
		"enable_middleware", cfg.EnableMiddleware,
	)
}
