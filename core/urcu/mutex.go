package urcu

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// TimedMutex is a writer mutex that additionally supports bounded waiting.
// Guarded handles always lock it without a deadline; callers that need a
// deadline can TryLockTimeout on the list's configured mutex directly.
type TimedMutex struct {
	sem *semaphore.Weighted
}

var _ sync.Locker = (*TimedMutex)(nil)

// NewTimedMutex creates an unlocked TimedMutex.
func NewTimedMutex() *TimedMutex {
	return &TimedMutex{sem: semaphore.NewWeighted(1)}
}

// Lock acquires the mutex, blocking until it is available.
func (m *TimedMutex) Lock() {
	m.sem.Acquire(context.Background(), 1)
}

// Unlock releases the mutex.
func (m *TimedMutex) Unlock() {
	m.sem.Release(1)
}

// TryLock acquires the mutex if it is immediately available.
func (m *TimedMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// LockContext acquires the mutex, or returns ctx.Err() if ctx ends first.
func (m *TimedMutex) LockContext(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryLockTimeout acquires the mutex within a timeout.
func (m *TimedMutex) TryLockTimeout(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.LockContext(ctx) == nil
}
