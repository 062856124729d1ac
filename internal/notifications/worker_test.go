package notifications

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	otperrors "medibook/internal/otp/errors"
	"medibook/pkg/kafka"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedDelivery struct {
	sessionID string
	status    model.DeliveryStatus
	errMsg    string
}

type fakeRecorder struct {
	records []recordedDelivery
	err     error
}

func (r *fakeRecorder) RecordDelivery(_ context.Context, sessionID string, status model.DeliveryStatus, deliveryErr string) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, recordedDelivery{sessionID, status, deliveryErr})
	return nil
}

func smsMessage(t *testing.T) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey("session-1").
		WithEventType(EventTypeSMSRequested).
		WithValue(model.SMSRequested{
			EventID:   "evt-1",
			SessionID: "session-1",
			SMS:       model.SMS{Phone: "+254712345678", Body: "code", Reference: "session-1"},
		}).
		Build()
	require.NoError(t, err)
	return msg
}

func TestWorker_Delivered(t *testing.T) {
	rec := &fakeRecorder{}
	sender := SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		return model.DeliverySent, nil
	})
	w := NewWorker(sender, rec, time.Second, 3, logger.Discard())

	require.NoError(t, w.Handle(context.Background(), smsMessage(t)))
	require.Len(t, rec.records, 1)
	assert.Equal(t, recordedDelivery{"session-1", model.DeliverySent, ""}, rec.records[0])
}

func TestWorker_TransientFailureRetries(t *testing.T) {
	rec := &fakeRecorder{}
	sender := SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		return model.DeliveryFailed, &GatewayError{StatusCode: http.StatusBadGateway}
	})
	w := NewWorker(sender, rec, time.Second, 2, logger.Discard())

	msg := smsMessage(t)
	err := w.Handle(context.Background(), msg)
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	assert.Empty(t, rec.records)

	msg.IncrementRetryCount()
	msg.IncrementRetryCount()
	err = w.Handle(context.Background(), msg)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	require.Len(t, rec.records, 1)
	assert.Equal(t, model.DeliveryFailed, rec.records[0].status)
	assert.Contains(t, rec.records[0].errMsg, "502")
}

func TestWorker_PermanentFailureRecordedImmediately(t *testing.T) {
	rec := &fakeRecorder{}
	sender := SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		return model.DeliveryFailed, &GatewayError{StatusCode: http.StatusBadRequest, Message: "invalid number"}
	})
	w := NewWorker(sender, rec, time.Second, 3, logger.Discard())

	err := w.Handle(context.Background(), smsMessage(t))
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	require.Len(t, rec.records, 1)
	assert.Equal(t, model.DeliveryFailed, rec.records[0].status)
}

func TestWorker_InvalidPayload(t *testing.T) {
	w := NewWorker(SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		t.Fatal("sender must not be called")
		return "", nil
	}), &fakeRecorder{}, time.Second, 3, logger.Discard())

	err := w.Handle(context.Background(), kafka.Message{
		Value:   []byte("not json"),
		Headers: map[string]string{kafka.HeaderEventType: EventTypeSMSRequested},
	})
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestWorker_UnknownChallengeIsDropped(t *testing.T) {
	rec := &fakeRecorder{err: otperrors.ErrNotFound}
	sender := SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		return model.DeliverySent, nil
	})
	w := NewWorker(sender, rec, time.Second, 3, logger.Discard())

	assert.NoError(t, w.Handle(context.Background(), smsMessage(t)))
}

func TestWorker_RecorderFailureIsTransient(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("connection reset by peer")}
	sender := SenderFunc(func(context.Context, model.SMS) (model.DeliveryStatus, error) {
		return model.DeliverySent, nil
	})
	w := NewWorker(sender, rec, time.Second, 3, logger.Discard())

	err := w.Handle(context.Background(), smsMessage(t))
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
}
