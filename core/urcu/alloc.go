package urcu

import (
	"sync"
	"sync/atomic"
)

// Allocator provides storage for list nodes and zombie records.
//
// Free may be invoked from any goroutine that unlocks a guard, concurrently
// with Alloc on the writer goroutine, so implementations must be safe for
// concurrent use. Storage passed to Free has been cleared by the caller.
type Allocator[E any] interface {
	Alloc() *E
	Free(p *E)
}

// HeapAllocator allocates from the Go heap and leaves freed storage to the garbage collector.
type HeapAllocator[E any] struct{}

var _ Allocator[int] = HeapAllocator[int]{}

// Alloc implements Allocator.
func (HeapAllocator[E]) Alloc() *E {
	return new(E)
}

// Free implements Allocator.
func (HeapAllocator[E]) Free(*E) {}

// PoolAllocator recycles storage through a sync.Pool.
// Recycled storage is handed out again by a later Alloc, so reclaiming too
// early shows up as corrupted reads rather than going unnoticed.
type PoolAllocator[E any] struct {
	pool sync.Pool
}

var _ Allocator[int] = (*PoolAllocator[int])(nil)

// NewPoolAllocator creates a PoolAllocator.
func NewPoolAllocator[E any]() *PoolAllocator[E] {
	a := &PoolAllocator[E]{}
	a.pool.New = func() any { return new(E) }
	return a
}

// Alloc implements Allocator.
func (a *PoolAllocator[E]) Alloc() *E {
	return a.pool.Get().(*E)
}

// Free implements Allocator.
func (a *PoolAllocator[E]) Free(p *E) {
	a.pool.Put(p)
}

// AllocStats contains allocator counters.
type AllocStats struct {
	NAlloc uint64 `json:"nAlloc"`
	NFree  uint64 `json:"nFree"`
}

// Live returns the number of allocations not yet freed.
func (s AllocStats) Live() int {
	return int(s.NAlloc - s.NFree)
}

// CountingAllocator wraps another Allocator and counts operations.
type CountingAllocator[E any] struct {
	inner  Allocator[E]
	nAlloc atomic.Uint64
	nFree  atomic.Uint64
}

var _ Allocator[int] = (*CountingAllocator[int])(nil)

// NewCountingAllocator creates a CountingAllocator.
// If inner is nil, HeapAllocator is used.
func NewCountingAllocator[E any](inner Allocator[E]) *CountingAllocator[E] {
	if inner == nil {
		inner = HeapAllocator[E]{}
	}
	return &CountingAllocator[E]{inner: inner}
}

// Alloc implements Allocator.
func (a *CountingAllocator[E]) Alloc() *E {
	p := a.inner.Alloc()
	a.nAlloc.Add(1)
	return p
}

// Free implements Allocator.
func (a *CountingAllocator[E]) Free(p *E) {
	a.nFree.Add(1)
	a.inner.Free(p)
}

// Stats returns counters.
func (a *CountingAllocator[E]) Stats() AllocStats {
	return AllocStats{
		NAlloc: a.nAlloc.Load(),
		NFree:  a.nFree.Load(),
	}
}
