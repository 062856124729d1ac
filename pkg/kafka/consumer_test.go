package kafka

import (
	"context"
	"errors"
	"testing"

	"medibook/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestConsumer(handler MessageHandler, maxRetries int) *Consumer {
	return &Consumer{
		topic:      "test",
		groupID:    "test-group",
		maxRetries: maxRetries,
		handler:    handler,
		log:        logger.Discard(),
	}
}

func TestProcessMessage_RetriesTransient(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return NewTransientError("flaky", nil)
		}
		return nil
	}, 3)

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestProcessMessage_StopsAtMaxRetries(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return NewTransientError("down", nil)
	}, 2)

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestProcessMessage_PermanentNotRetried(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("bad payload", errors.New("decode"))
	}, 5)

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestProcessMessage_MiddlewareOrder(t *testing.T) {
	var order []string
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		order = append(order, "handler")
		return nil
	}, 0)
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "second")
		return next(ctx, msg)
	})

	assert.NoError(t, c.processMessage(context.Background(), Message{Headers: map[string]string{}}))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
