package notifications

import (
	"context"
	"fmt"
	"time"

	"medibook/pkg/kafka"
	kafka_config "medibook/pkg/kafka/config"
	kafka_middleware "medibook/pkg/kafka/middleware"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/google/uuid"
)

const EventTypeSMSRequested = "sms.requested"

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// NewProducer returns a producer for the SMS topic with logging middleware
// attached when the Kafka config enables it.
func NewProducer(cfg *kafka_config.Config, log *logger.Logger) (*kafka.Producer, error) {
	producer, err := kafka.NewProducer(cfg, cfg.SMSTopic, cfg.SMSDLQTopic, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms producer: %w", err)
	}
	if cfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	}
	return producer, nil
}

// NewConsumer reads the SMS topic as the configured group and dead-letters to
// the SMS DLQ topic. Metrics are always collected; logging follows the Kafka
// config.
func NewConsumer(cfg *kafka_config.Config, handler kafka.MessageHandler, metrics *kafka_middleware.Metrics, log *logger.Logger) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(cfg, cfg.SMSTopic, cfg.ConsumerGroup, cfg.SMSDLQTopic, handler, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms consumer: %w", err)
	}
	if cfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	}
	consumer.Use(metrics.ConsumerMiddleware())
	return consumer, nil
}

type KafkaSender struct {
	publisher     Publisher
	source        string
	schemaVersion string
	log           *logger.Logger
	now           func() time.Time
}

// NewKafkaSender stamps events with the source and schema version from cfg.
func NewKafkaSender(publisher Publisher, cfg *kafka_config.Config, log *logger.Logger) *KafkaSender {
	return &KafkaSender{
		publisher:     publisher,
		source:        cfg.EventSource,
		schemaVersion: cfg.SchemaVersion,
		log:           log,
		now:           time.Now,
	}
}

// Send publishes an SMSRequested event keyed by the challenge reference.
// Delivery itself happens in the notifier, so success means queued.
func (s *KafkaSender) Send(ctx context.Context, sms model.SMS) (model.DeliveryStatus, error) {
	event := model.SMSRequested{
		EventID:     uuid.New().String(),
		SessionID:   sms.Reference,
		SMS:         sms,
		RequestedAt: s.now().UTC(),
	}

	msg, err := kafka.NewMessage().
		WithKey(sms.Reference).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(EventTypeSMSRequested).
		WithCorrelationID(sms.Reference).
		WithSchemaVersion(s.schemaVersion).
		WithSource(s.source).
		Build()
	if err != nil {
		return model.DeliveryFailed, fmt.Errorf("failed to build sms event: %w", err)
	}

	if err := s.publisher.Publish(ctx, msg); err != nil {
		return model.DeliveryFailed, fmt.Errorf("failed to queue sms: %w", err)
	}

	s.log.Debug("SMS queued", "reference", sms.Reference, "event_id", event.EventID)
	return model.DeliveryQueued, nil
}
