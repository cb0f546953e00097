package urcu

// Guarded wraps a Guardable value and hands out read and write handles.
//
// Handles lock lazily: the underlying RCU lock is taken on the first Get, not
// when the handle is created. A handle belongs to one goroutine at a time.
type Guarded[T Guardable] struct {
	value T
}

// NewGuarded wraps a value.
func NewGuarded[T Guardable](value T) *Guarded[T] {
	return &Guarded[T]{value: value}
}

// NewGuardedList creates a List and wraps it.
func NewGuardedList[V any](cfg ListConfig[V]) *Guarded[*List[V]] {
	return NewGuarded(NewList(cfg))
}

// Value returns the wrapped value without locking.
// This is intended for construction and teardown, when no handle is outstanding.
func (gd *Guarded[T]) Value() T {
	return gd.value
}

// LockWrite returns a write handle.
func (gd *Guarded[T]) LockWrite() *WriteHandle[T] {
	return &WriteHandle[T]{handle[T]{target: gd.value, bound: true, write: true}}
}

// LockRead returns a read handle.
func (gd *Guarded[T]) LockRead() *ReadHandle[T] {
	return &ReadHandle[T]{handle[T]{target: gd.value, bound: true}}
}

// Write invokes fn with exclusive writer access.
func (gd *Guarded[T]) Write(fn func(value T)) {
	h := gd.LockWrite()
	defer h.Release()
	fn(h.Get())
}

// Read invokes fn with read access.
func (gd *Guarded[T]) Read(fn func(value T)) {
	h := gd.LockRead()
	defer h.Release()
	fn(h.Get())
}

type handle[T Guardable] struct {
	target   T
	guard    Guard
	bound    bool
	accessed bool
	write    bool
}

func (h *handle[T]) access() T {
	if !h.bound {
		panic(ErrReleasedHandle)
	}
	if !h.accessed {
		if h.write {
			h.guard = h.target.RcuWriteLock()
		} else {
			h.guard = h.target.RcuReadLock()
		}
		h.accessed = true
	}
	return h.target
}

func (h *handle[T]) release() {
	if h.accessed {
		if h.write {
			h.target.RcuWriteUnlock(h.guard)
		} else {
			h.target.RcuReadUnlock(h.guard)
		}
	}
	*h = handle[T]{}
}

func (h *handle[T]) move() (moved handle[T]) {
	moved, *h = *h, handle[T]{}
	return moved
}

// WriteHandle grants exclusive writer access to a Guarded value.
// Readers proceed concurrently with the writer.
type WriteHandle[T Guardable] struct {
	handle[T]
}

// Get returns the wrapped value, acquiring the write lock on first use.
// Panics if the handle has been released or moved.
func (h *WriteHandle[T]) Get() T {
	return h.access()
}

// Accessed reports whether the write lock is held.
func (h *WriteHandle[T]) Accessed() bool {
	return h.accessed
}

// Valid reports whether the handle is bound to a value.
func (h *WriteHandle[T]) Valid() bool {
	return h.bound
}

// Release unlocks if the handle was accessed, and makes the handle inert.
// Calling Release again has no effect.
func (h *WriteHandle[T]) Release() {
	h.release()
}

// Close implements io.Closer.
func (h *WriteHandle[T]) Close() error {
	h.release()
	return nil
}

// Move transfers ownership to a new handle, leaving h inert.
func (h *WriteHandle[T]) Move() *WriteHandle[T] {
	return &WriteHandle[T]{h.move()}
}

// ReadHandle grants read access to a Guarded value.
// The value must not be mutated through a read handle.
type ReadHandle[T Guardable] struct {
	handle[T]
}

// Get returns the wrapped value, registering an epoch marker on first use.
// Panics if the handle has been released or moved.
func (h *ReadHandle[T]) Get() T {
	return h.access()
}

// Accessed reports whether the read lock is held.
func (h *ReadHandle[T]) Accessed() bool {
	return h.accessed
}

// Valid reports whether the handle is bound to a value.
func (h *ReadHandle[T]) Valid() bool {
	return h.bound
}

// Release unlocks if the handle was accessed, and makes the handle inert.
// Calling Release again has no effect.
func (h *ReadHandle[T]) Release() {
	h.release()
}

// Close implements io.Closer.
func (h *ReadHandle[T]) Close() error {
	h.release()
	return nil
}

// Move transfers ownership to a new handle, leaving h inert.
func (h *ReadHandle[T]) Move() *ReadHandle[T] {
	return &ReadHandle[T]{h.move()}
}
