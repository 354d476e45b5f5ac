// Package keylock provides per-key exclusive locks with a bounded wait, used
// to serialize mutations per vehicle, per booking and per report without a
// global lock. A congested key never stalls unrelated keys.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the bounded wait.
var ErrTimeout = errors.New("lock acquisition timed out")

type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex hands out one exclusive lock per key. Entries are dropped once
// the last holder or waiter is gone, so the map does not grow with the
// lifetime key space.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

// New creates a KeyedMutex whose Acquire waits at most wait before failing.
func New(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*entry),
		wait:    wait,
	}
}

// Acquire takes the lock for key, waiting at most the configured bound. On
// success it returns the release function; callers must invoke it exactly
// once. It fails with ErrTimeout after the bounded wait, or with the context
// error if ctx is done first.
func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.put(key, e)
		}, nil
	case <-timer.C:
		k.put(key, e)
		return nil, ErrTimeout
	case <-ctx.Done():
		k.put(key, e)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) put(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
