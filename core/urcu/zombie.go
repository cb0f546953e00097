package urcu

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Zombie is a record on the retirement chain.
// It either marks a live guard (owner is set) or holds a retired node.
// Records are pushed newest-first, so every record behind a marker was pushed
// before that marker's guard registered.
type Zombie[T any] struct {
	next  atomic.Pointer[Zombie[T]]
	owner atomic.Pointer[ListGuard[T]]
	node  *Node[T]
}

func (z *Zombie[T]) reset() {
	z.next.Store(nil)
	z.owner.Store(nil)
	z.node = nil
}

// ListGuard is the epoch marker of a List.
// The same type serves read and write locking.
type ListGuard[T any] struct {
	list   *List[T]
	marker *Zombie[T]
}

var _ Guard = (*ListGuard[int])(nil)

// Active implements Guard.
func (g *ListGuard[T]) Active() bool {
	return g != nil && g.marker != nil
}

func (l *List[T]) guardOf(guard Guard) *ListGuard[T] {
	g, ok := guard.(*ListGuard[T])
	switch {
	case !ok || g.list != l:
		panic(ErrForeignGuard)
	case g.marker == nil:
		panic(ErrUnlockedGuard)
	}
	return g
}

// pushZombie publishes a record at the head of the chain.
func (l *List[T]) pushZombie(z *Zombie[T]) {
	for {
		head := l.zombies.Load()
		z.next.Store(head)
		if l.zombies.CompareAndSwap(head, z) {
			return
		}
	}
}

func (l *List[T]) registerMarker() *ListGuard[T] {
	g := &ListGuard[T]{list: l}
	z := l.zombieAlloc.Alloc()
	z.owner.Store(g)
	g.marker = z
	l.nMarkers.Add(1)
	l.pushZombie(z)
	return g
}

// releaseMarker deregisters the guard's marker.
// If no record behind the marker still has a live owner, the whole segment
// behind it is unobservable and gets reclaimed.
func (l *List[T]) releaseMarker(g *ListGuard[T]) {
	z := g.marker
	g.marker = nil
	defer z.owner.Store(nil)

	if l.closed.Load() {
		return
	}

	first := z.next.Load()
	for rec := first; rec != nil; rec = rec.next.Load() {
		if rec.owner.Load() != nil {
			return
		}
	}
	if first == nil {
		return
	}

	z.next.Store(nil)
	nRecords, nNodes := l.reclaimSegment(first)
	if ce := logger.Check(zap.DebugLevel, "reclaim"); ce != nil {
		ce.Write(zap.Int("records", nRecords), zap.Int("nodes", nNodes))
	}
}

// reclaimSegment frees a detached chain segment and the nodes it holds.
func (l *List[T]) reclaimSegment(rec *Zombie[T]) (nRecords, nNodes int) {
	for rec != nil {
		next := rec.next.Load()
		if rec.node != nil {
			l.destroyNode(rec.node)
			l.nReclaimed.Add(1)
			nNodes++
		}
		rec.reset()
		l.zombieAlloc.Free(rec)
		nRecords++
		rec = next
	}
	return
}

// retire hands an unlinked node to the chain for deferred reclamation.
func (l *List[T]) retire(n *Node[T]) {
	z := l.zombieAlloc.Alloc()
	z.node = n
	l.nRetired.Add(1)
	l.pushZombie(z)
}

// RcuReadLock implements Guardable.
func (l *List[T]) RcuReadLock() Guard {
	return l.registerMarker()
}

// RcuReadUnlock implements Guardable.
func (l *List[T]) RcuReadUnlock(guard Guard) {
	l.releaseMarker(l.guardOf(guard))
}

// RcuWriteLock implements Guardable.
// The writer registers its own marker before taking the mutex, because it
// traverses the list like any reader.
func (l *List[T]) RcuWriteLock() Guard {
	g := l.registerMarker()
	l.mu.Lock()
	return g
}

// RcuWriteUnlock implements Guardable.
// The mutex is released before the marker.
func (l *List[T]) RcuWriteUnlock(guard Guard) {
	g := l.guardOf(guard)
	l.mu.Unlock()
	l.releaseMarker(g)
}
