package urcu

import (
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Node is a list element.
// Its fields are managed by List; Node is exported only so that an Allocator can be supplied.
type Node[T any] struct {
	value   T
	next    atomic.Pointer[Node[T]]
	back    atomic.Pointer[Node[T]]
	deleted bool // written by the writer only
}

func (n *Node[T]) reset() {
	var zero T
	n.value = zero
	n.next.Store(nil)
	n.back.Store(nil)
	n.deleted = false
}

// ListConfig contains List options.
type ListConfig[T any] struct {
	// Mutex serializes writers.
	// The default is a *sync.Mutex.
	Mutex sync.Locker

	// NodeAlloc provides node storage.
	// The default is HeapAllocator.
	NodeAlloc Allocator[Node[T]]

	// ZombieAlloc provides retirement record storage.
	// The default is HeapAllocator.
	ZombieAlloc Allocator[Zombie[T]]

	// Reclaim is invoked exactly once on each element when its storage is
	// released, either after a grace period or during Close.
	Reclaim func(value *T)
}

func (cfg *ListConfig[T]) applyDefaults() {
	if cfg.Mutex == nil {
		cfg.Mutex = &sync.Mutex{}
	}
	if cfg.NodeAlloc == nil {
		cfg.NodeAlloc = HeapAllocator[Node[T]]{}
	}
	if cfg.ZombieAlloc == nil {
		cfg.ZombieAlloc = HeapAllocator[Zombie[T]]{}
	}
}

// Counters contains List counters.
type Counters struct {
	Len       int    `json:"len"`
	Markers   uint64 `json:"markers"`
	Retired   uint64 `json:"retired"`
	Reclaimed uint64 `json:"reclaimed"`
}

// Pending returns the number of retired elements awaiting reclamation.
func (cnt Counters) Pending() int {
	return int(cnt.Retired - cnt.Reclaimed)
}

// Sub computes the difference of cumulative counters; Len is taken from cnt.
func (cnt Counters) Sub(prev Counters) (diff Counters) {
	diff.Len = cnt.Len
	diff.Markers = cnt.Markers - prev.Markers
	diff.Retired = cnt.Retired - prev.Retired
	diff.Reclaimed = cnt.Reclaimed - prev.Reclaimed
	return diff
}

func (cnt Counters) String() string {
	return fmt.Sprintf("len=%d markers=%d retired=%d reclaimed=%d", cnt.Len, cnt.Markers, cnt.Retired, cnt.Reclaimed)
}

// List is a doubly linked list with lock-free forward traversal.
//
// Readers must hold a read guard (RcuReadLock or a ReadHandle) while
// traversing. Mutating methods must only be called while holding the write
// guard. Iterators stay dereferenceable for as long as the guard under which
// they were obtained remains locked, even if the element is erased meanwhile.
// Backward traversal concurrent with a writer is not guaranteed consistent.
type List[T any] struct {
	head    atomic.Pointer[Node[T]]
	tail    atomic.Pointer[Node[T]]
	zombies atomic.Pointer[Zombie[T]]
	length  atomic.Int64
	closed  atomic.Bool

	mu          sync.Locker
	nodeAlloc   Allocator[Node[T]]
	zombieAlloc Allocator[Zombie[T]]
	reclaim     func(value *T)

	nMarkers   atomic.Uint64
	nRetired   atomic.Uint64
	nReclaimed atomic.Uint64
}

var _ Guardable = (*List[int])(nil)

// NewList creates an empty List.
func NewList[T any](cfg ListConfig[T]) *List[T] {
	cfg.applyDefaults()
	return &List[T]{
		mu:          cfg.Mutex,
		nodeAlloc:   cfg.NodeAlloc,
		zombieAlloc: cfg.ZombieAlloc,
		reclaim:     cfg.Reclaim,
	}
}

// Mutex returns the writer mutex.
func (l *List[T]) Mutex() sync.Locker {
	return l.mu
}

// Len returns the number of linked elements.
func (l *List[T]) Len() int {
	return int(l.length.Load())
}

// Counters returns current counters.
func (l *List[T]) Counters() Counters {
	return Counters{
		Len:       l.Len(),
		Markers:   l.nMarkers.Load(),
		Retired:   l.nRetired.Load(),
		Reclaimed: l.nReclaimed.Load(),
	}
}

// Begin returns an iterator to the first element.
func (l *List[T]) Begin() Iterator[T] {
	return Iterator[T]{l.head.Load()}
}

// CBegin returns a read-only iterator to the first element.
func (l *List[T]) CBegin() ConstIterator[T] {
	return l.Begin().Const()
}

// End returns the past-the-end sentinel.
func (l *List[T]) End() Iterator[T] {
	return Iterator[T]{}
}

// Front returns the first element.
func (l *List[T]) Front() (value T, ok bool) {
	if n := l.head.Load(); n != nil {
		return n.value, true
	}
	return value, false
}

// Back returns the last element.
func (l *List[T]) Back() (value T, ok bool) {
	if n := l.tail.Load(); n != nil {
		return n.value, true
	}
	return value, false
}

// All iterates over element values in forward order.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for it := l.Begin(); it.Valid(); it = it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Find returns an iterator to the first element satisfying pred, or End.
func (l *List[T]) Find(pred func(value T) bool) Iterator[T] {
	for it := l.Begin(); it.Valid(); it = it.Next() {
		if pred(it.Value()) {
			return it
		}
	}
	return l.End()
}

// construct allocates a node and initializes its value.
// If init fails or panics, the storage is returned to the allocator.
func (l *List[T]) construct(init func(value *T) error) (*Node[T], error) {
	n := l.nodeAlloc.Alloc()
	constructed := false
	defer func() {
		if !constructed {
			n.reset()
			l.nodeAlloc.Free(n)
		}
	}()

	if init != nil {
		if e := init(&n.value); e != nil {
			return nil, e
		}
	}
	constructed = true
	return n, nil
}

// link publishes n before pos; a nil pos appends at the tail.
// Every pointer of n is set before n becomes reachable, and the successor's
// back pointer is updated before the predecessor's forward pointer.
func (l *List[T]) link(pos, n *Node[T]) {
	head := l.head.Load()
	switch {
	case head == nil:
		l.tail.Store(n)
		l.head.Store(n)
	case pos == nil:
		tail := l.tail.Load()
		n.back.Store(tail)
		tail.next.Store(n)
		l.tail.Store(n)
	case pos == head:
		n.next.Store(head)
		head.back.Store(n)
		l.head.Store(n)
	default:
		prev := pos.back.Load()
		n.next.Store(pos)
		n.back.Store(prev)
		pos.back.Store(n)
		prev.next.Store(n)
	}
	l.length.Add(1)
}

// Insert inserts value before pos and returns an iterator to it.
// Inserting before End appends.
func (l *List[T]) Insert(pos Iterator[T], value T) Iterator[T] {
	it, _ := l.Emplace(pos, func(v *T) error {
		*v = value
		return nil
	})
	return it
}

// Emplace constructs an element in place before pos.
// If init returns an error, nothing is inserted and End is returned with the error.
func (l *List[T]) Emplace(pos Iterator[T], init func(value *T) error) (Iterator[T], error) {
	n, e := l.construct(init)
	if e != nil {
		return l.End(), e
	}
	l.link(pos.node, n)
	return Iterator[T]{n}, nil
}

// PushFront inserts value at the head.
func (l *List[T]) PushFront(value T) {
	l.EmplaceFront(func(v *T) error {
		*v = value
		return nil
	})
}

// PushBack inserts value at the tail.
func (l *List[T]) PushBack(value T) {
	l.EmplaceBack(func(v *T) error {
		*v = value
		return nil
	})
}

// EmplaceFront constructs an element in place at the head.
func (l *List[T]) EmplaceFront(init func(value *T) error) error {
	n, e := l.construct(init)
	if e != nil {
		return e
	}
	l.link(l.head.Load(), n)
	return nil
}

// EmplaceBack constructs an element in place at the tail.
func (l *List[T]) EmplaceBack(init func(value *T) error) error {
	n, e := l.construct(init)
	if e != nil {
		return e
	}
	l.link(nil, n)
	return nil
}

// Erase unlinks the element at it and returns an iterator to its successor.
//
// The element is retired, not freed: concurrent readers positioned on it can
// still dereference it and move forward. Erasing an already erased element
// is a no-op that returns the same successor, provided the write guard held
// since obtaining it has not been released.
func (l *List[T]) Erase(it Iterator[T]) Iterator[T] {
	n := it.node
	if n == nil {
		return it
	}
	next := n.next.Load()
	if n.deleted {
		return Iterator[T]{next}
	}
	n.deleted = true

	prev := n.back.Load()
	if prev == nil {
		l.head.Store(next)
	} else {
		prev.next.Store(next)
	}
	if next == nil {
		l.tail.Store(prev)
	} else {
		next.back.Store(prev)
	}
	l.length.Add(-1)

	l.retire(n)
	return Iterator[T]{next}
}

// Clear erases every element.
func (l *List[T]) Clear() {
	for it := l.Begin(); it.Valid(); {
		it = l.Erase(it)
	}
}

func (l *List[T]) destroyNode(n *Node[T]) {
	if l.reclaim != nil {
		l.reclaim(&n.value)
	}
	n.reset()
	l.nodeAlloc.Free(n)
}

// Close releases every element and every reclaimable retirement record.
//
// No goroutine may access the list during or after Close. A marker still
// registered at this point belongs to a guard that outlived the list; its
// record is left alone and ErrGuardOutlived is returned.
func (l *List[T]) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	for n := l.head.Swap(nil); n != nil; {
		next := n.next.Load()
		l.destroyNode(n)
		n = next
	}
	l.tail.Store(nil)
	l.length.Store(0)

	nOutlived := 0
	for rec := l.zombies.Swap(nil); rec != nil; {
		next := rec.next.Load()
		if rec.owner.Load() != nil {
			nOutlived++
		} else {
			if rec.node != nil {
				l.destroyNode(rec.node)
				l.nReclaimed.Add(1)
			}
			rec.reset()
			l.zombieAlloc.Free(rec)
		}
		rec = next
	}

	if nOutlived > 0 {
		logger.Warn("guards outlived list", zap.Int("guards", nOutlived))
		return fmt.Errorf("%w (%d guards)", ErrGuardOutlived, nOutlived)
	}
	return nil
}
