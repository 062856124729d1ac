package notifications

import (
	"context"
	"errors"
	"time"

	otperrors "medibook/internal/otp/errors"
	"medibook/pkg/kafka"
	"medibook/pkg/logger"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

// DeliveryRecorder stores the outcome of a delivery attempt on the challenge
// the message belongs to.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, sessionID string, status model.DeliveryStatus, deliveryErr string) error
}

type Worker struct {
	sender     Sender
	recorder   DeliveryRecorder
	timeout    time.Duration
	maxRetries int
	log        *logger.Logger
}

func NewWorker(sender Sender, recorder DeliveryRecorder, timeout time.Duration, maxRetries int, log *logger.Logger) *Worker {
	return &Worker{
		sender:     sender,
		recorder:   recorder,
		timeout:    timeout,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Handle is a kafka.MessageHandler. Transient gateway failures are returned
// as transient errors while retries remain, so the consumer tries again; the
// final failure is recorded on the challenge.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.GetEventType() != "" && msg.GetEventType() != EventTypeSMSRequested {
		w.log.Debug("Ignoring unrelated event", "event_type", msg.GetEventType())
		return nil
	}

	var event model.SMSRequested
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("invalid sms event payload", err)
	}
	if event.SessionID == "" || event.SMS.Phone == "" {
		return kafka.NewPermanentError("sms event is missing session or phone", nil)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	status, err := w.sender.Send(sendCtx, event.SMS)
	cancel()

	if err != nil {
		if isTransient(err) && msg.GetRetryCount() < w.maxRetries {
			return kafka.NewTransientError("sms delivery failed", err)
		}
		w.log.Warn("SMS delivery failed",
			"session_id", event.SessionID,
			"phone", sanitizer.MaskPhone(event.SMS.Phone),
			"error", err,
		)
		if recErr := w.record(ctx, event.SessionID, model.DeliveryFailed, err.Error()); recErr != nil {
			return recErr
		}
		return kafka.NewPermanentError("sms delivery failed", err)
	}

	w.log.Info("SMS delivered",
		"session_id", event.SessionID,
		"phone", sanitizer.MaskPhone(event.SMS.Phone),
		"status", status,
	)
	return w.record(ctx, event.SessionID, status, "")
}

func (w *Worker) record(ctx context.Context, sessionID string, status model.DeliveryStatus, deliveryErr string) error {
	err := w.recorder.RecordDelivery(ctx, sessionID, status, deliveryErr)
	if err == nil {
		return nil
	}
	if errors.Is(err, otperrors.ErrNotFound) {
		w.log.Warn("Delivery outcome for unknown challenge dropped", "session_id", sessionID)
		return nil
	}
	return kafka.NewTransientError("failed to record delivery outcome", err)
}

func isTransient(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return kafka.ClassifyError(err) == kafka.ErrorTypeTransient
}
