package notifications

import (
	"context"

	"medibook/pkg/logger"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

// LogSender records that a message would have been sent. The body carries
// the code and is never logged.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, sms model.SMS) (model.DeliveryStatus, error) {
	s.log.Info("SMS delivery skipped by log driver",
		"phone", sanitizer.MaskPhone(sms.Phone),
		"reference", sms.Reference,
		"body_length", len(sms.Body),
	)
	return model.DeliverySent, nil
}
