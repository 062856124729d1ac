// Package notifications delivers patient SMS messages. Senders either hand the
// message to the delivery queue or call the SMS gateway directly; Worker drains
// the queue in cmd/notifier.
package notifications

import (
	"context"
	"fmt"

	"medibook/pkg/config"
	kafka_config "medibook/pkg/kafka/config"
	"medibook/pkg/model"
)

type Sender interface {
	// Send hands sms to the delivery channel and reports how far it got:
	// queued when another process completes delivery, sent when the gateway
	// accepted it.
	Send(ctx context.Context, sms model.SMS) (model.DeliveryStatus, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, sms model.SMS) (model.DeliveryStatus, error)

func (f SenderFunc) Send(ctx context.Context, sms model.SMS) (model.DeliveryStatus, error) {
	return f(ctx, sms)
}

// NewSender builds the Sender selected by NOTIFICATION_DRIVER. The returned
// close function releases the underlying producer, if any.
func NewSender(cfg *config.Config) (Sender, func() error, error) {
	switch cfg.NotificationDriver {
	case config.DriverKafka:
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid kafka configuration: %w", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)
		producer, err := NewProducer(kafkaCfg, cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		return NewKafkaSender(producer, kafkaCfg, cfg.Log), producer.Close, nil
	case config.DriverGateway:
		return NewGatewaySender(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSSenderID, cfg.NotificationTimeout), noopClose, nil
	case config.DriverLog:
		return NewLogSender(cfg.Log), noopClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification driver %q", cfg.NotificationDriver)
	}
}

func noopClose() error { return nil }
