// Package housekeeping runs periodic maintenance on the asynq queue. Nothing
// here is needed for correctness: expiry is always re-checked at verify time.
package housekeeping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medibook/pkg/config"
	"medibook/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeExpireStaleOTP = "otp:expire_stale"
	QueueName          = "housekeeping"
)

type ExpireStalePayload struct {
	GraceSeconds int64 `json:"grace_seconds"`
}

func (p ExpireStalePayload) Grace() time.Duration {
	return time.Duration(p.GraceSeconds) * time.Second
}

// Expirer flips long-expired pending challenges to expired.
type Expirer interface {
	ExpireStale(ctx context.Context, grace time.Duration) (int64, error)
}

func NewExpireStaleTask(grace time.Duration) (*asynq.Task, error) {
	b, err := json.Marshal(ExpireStalePayload{GraceSeconds: int64(grace / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpireStaleOTP, b, asynq.Queue(QueueName), asynq.MaxRetry(1)), nil
}

// HandleExpireStale decodes the payload and runs one sweep. A payload that
// cannot be decoded is not retried.
func HandleExpireStale(expirer Expirer, log *logger.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ExpireStalePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Warn("Invalid expire stale payload", "task", task.Type(), "error", err)
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.GraceSeconds < 0 {
			return fmt.Errorf("negative grace %d: %w", p.GraceSeconds, asynq.SkipRetry)
		}

		n, err := expirer.ExpireStale(ctx, p.Grace())
		if err != nil {
			return err
		}
		log.Debug("Stale otp sweep finished", "expired", n)
		return nil
	}
}

func NewServeMux(expirer Expirer, log *logger.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireStaleOTP, HandleExpireStale(expirer, log))
	return mux
}

// CronSpec turns an interval into an asynq scheduler spec.
func CronSpec(interval time.Duration) string {
	return "@every " + interval.String()
}

func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func NewServer(cfg *config.Config) *asynq.Server {
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{QueueName: 1},
		Logger:      asynqLogger{cfg.Log.With("component", "asynq")},
	})
}

// NewScheduler registers the stale OTP sweep at cfg.OTPSweepInterval.
func NewScheduler(cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger{cfg.Log.With("component", "asynq-scheduler")},
	})

	task, err := NewExpireStaleTask(cfg.OTPSweepGrace)
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(CronSpec(cfg.OTPSweepInterval), task)
	if err != nil {
		return nil, fmt.Errorf("failed to register stale otp sweep: %w", err)
	}
	cfg.Log.Info("Registered stale otp sweep", "entry_id", entryID, "interval", cfg.OTPSweepInterval, "grace", cfg.OTPSweepGrace)
	return scheduler, nil
}
