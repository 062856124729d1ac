package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker serializes holders of the same key within one process.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	wait    time.Duration
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]*memoryEntry),
		wait:    wait,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case e.ch <- struct{}{}:
		return once(func() {
			<-e.ch
			l.unref(key, e)
		}), nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ErrTimeout
	}
}

func (l *MemoryLocker) unref(key string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
