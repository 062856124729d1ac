package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"medibook/pkg/kafka"
)

// Metrics holds Kafka operation counters. The zero value is ready to use.
type Metrics struct {
	messagesPublished       atomic.Int64
	messagesPublishedFailed atomic.Int64
	publishDurationTotal    atomic.Int64

	messagesConsumed       atomic.Int64
	messagesConsumedFailed atomic.Int64
	consumeDurationTotal   atomic.Int64
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Published          int64
	PublishFailed      int64
	AvgPublishDuration time.Duration
	Consumed           int64
	ConsumeFailed      int64
	AvgConsumeDuration time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Reset() {
	m.messagesPublished.Store(0)
	m.messagesPublishedFailed.Store(0)
	m.publishDurationTotal.Store(0)
	m.messagesConsumed.Store(0)
	m.messagesConsumedFailed.Store(0)
	m.consumeDurationTotal.Store(0)
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Published:          m.messagesPublished.Load(),
		PublishFailed:      m.messagesPublishedFailed.Load(),
		AvgPublishDuration: average(m.publishDurationTotal.Load(), m.messagesPublished.Load()+m.messagesPublishedFailed.Load()),
		Consumed:           m.messagesConsumed.Load(),
		ConsumeFailed:      m.messagesConsumedFailed.Load(),
		AvgConsumeDuration: average(m.consumeDurationTotal.Load(), m.messagesConsumed.Load()+m.messagesConsumedFailed.Load()),
	}
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

// Attrs returns the snapshot as logger key/value pairs.
func (s Snapshot) Attrs() []any {
	return []any{
		"published", s.Published,
		"publish_failed", s.PublishFailed,
		"avg_publish_duration", s.AvgPublishDuration,
		"consumed", s.Consumed,
		"consume_failed", s.ConsumeFailed,
		"avg_consume_duration", s.AvgConsumeDuration,
	}
}

// ProducerMiddleware tracks producer metrics
func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.publishDurationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.messagesPublishedFailed.Add(1)
		} else {
			m.messagesPublished.Add(1)
		}

		return err
	}
}

// ConsumerMiddleware tracks consumer metrics
func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		m.consumeDurationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.messagesConsumedFailed.Add(1)
		} else {
			m.messagesConsumed.Add(1)
		}

		return err
	}
}
