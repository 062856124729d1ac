// Package lock provides keyed mutual exclusion used to serialize mutations of
// a single booking across requests and, for the mongo and redis drivers,
// across processes.
package lock

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("timed out waiting for lock")

// Release gives the lock back. It is safe to call more than once.
type Release func()

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

const (
	minBackoff = 10 * time.Millisecond
	maxBackoff = 200 * time.Millisecond
)

// retry calls try until it reports success, the context ends, or wait elapses.
func retry(ctx context.Context, wait time.Duration, try func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	backoff := minBackoff
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrTimeout
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func once(fn func()) Release {
	var done bool
	return func() {
		if done {
			return
		}
		done = true
		fn()
	}
}
