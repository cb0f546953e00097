package urcu_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/usnistgov/rcuguard/core/urcu"
	"go4.org/must"
)

type probeGuard struct {
	active bool
}

func (g *probeGuard) Active() bool {
	return g.active
}

// probe is a Guardable that records lock activity.
type probe struct {
	mu           sync.Mutex
	readLocks    atomic.Int32
	readUnlocks  atomic.Int32
	writeLocks   atomic.Int32
	writeUnlocks atomic.Int32
	writers      atomic.Int32
	maxWriters   atomic.Int32
}

func (p *probe) RcuReadLock() urcu.Guard {
	p.readLocks.Add(1)
	return &probeGuard{true}
}

func (p *probe) RcuReadUnlock(g urcu.Guard) {
	g.(*probeGuard).active = false
	p.readUnlocks.Add(1)
}

func (p *probe) RcuWriteLock() urcu.Guard {
	p.mu.Lock()
	p.writeLocks.Add(1)
	n := p.writers.Add(1)
	for {
		m := p.maxWriters.Load()
		if n <= m || p.maxWriters.CompareAndSwap(m, n) {
			break
		}
	}
	return &probeGuard{true}
}

func (p *probe) RcuWriteUnlock(g urcu.Guard) {
	g.(*probeGuard).active = false
	p.writers.Add(-1)
	p.writeUnlocks.Add(1)
	p.mu.Unlock()
}

func TestHandleLazyLock(t *testing.T) {
	assert, _ := makeAR(t)

	p := &probe{}
	gd := urcu.NewGuarded(p)
	assert.Same(p, gd.Value())

	wh := gd.LockWrite()
	assert.True(wh.Valid())
	assert.False(wh.Accessed())
	assert.EqualValues(0, p.writeLocks.Load())

	assert.Same(p, wh.Get())
	assert.True(wh.Accessed())
	wh.Get()
	wh.Get()
	assert.EqualValues(1, p.writeLocks.Load())

	wh.Release()
	assert.False(wh.Valid())
	assert.EqualValues(1, p.writeUnlocks.Load())
	wh.Release()
	assert.EqualValues(1, p.writeUnlocks.Load())
	assert.PanicsWithValue(urcu.ErrReleasedHandle, func() { wh.Get() })

	rh := gd.LockRead()
	rh.Release()
	assert.EqualValues(0, p.readLocks.Load())
	assert.EqualValues(0, p.readUnlocks.Load())

	rh = gd.LockRead()
	rh.Get()
	must.Close(rh)
	assert.EqualValues(1, p.readLocks.Load())
	assert.EqualValues(1, p.readUnlocks.Load())
}

func TestHandleMove(t *testing.T) {
	assert, _ := makeAR(t)

	p := &probe{}
	gd := urcu.NewGuarded(p)

	rh := gd.LockRead()
	rh.Get()
	rh2 := rh.Move()
	assert.False(rh.Valid())
	assert.True(rh2.Valid())
	assert.True(rh2.Accessed())

	rh.Release()
	assert.EqualValues(0, p.readUnlocks.Load())
	rh2.Get()
	assert.EqualValues(1, p.readLocks.Load())
	rh2.Release()
	assert.EqualValues(1, p.readUnlocks.Load())

	wh := gd.LockWrite()
	wh2 := wh.Move()
	assert.False(wh2.Accessed())
	assert.Panics(func() { wh.Get() })
	wh2.Get()
	wh2.Release()
	assert.EqualValues(1, p.writeLocks.Load())
	assert.EqualValues(1, p.writeUnlocks.Load())
}

func TestWriteExclusive(t *testing.T) {
	assert, _ := makeAR(t)

	p := &probe{}
	gd := urcu.NewGuarded(p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				gd.Write(func(p *probe) {
					if n := p.writers.Load(); n != 1 {
						t.Errorf("%d concurrent writers", n)
					}
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				gd.Read(func(*probe) {})
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(1, p.maxWriters.Load())
	assert.EqualValues(16*200, p.writeLocks.Load())
	assert.EqualValues(16*200, p.writeUnlocks.Load())
	assert.EqualValues(16*200, p.readLocks.Load())
	assert.EqualValues(16*200, p.readUnlocks.Load())
}

func TestListGuardMisuse(t *testing.T) {
	assert, _ := makeAR(t)

	a := urcu.NewList(urcu.ListConfig[int]{})
	b := urcu.NewList(urcu.ListConfig[int]{})
	g := a.RcuReadLock()
	assert.True(g.Active())
	assert.PanicsWithValue(urcu.ErrForeignGuard, func() { b.RcuReadUnlock(g) })
	assert.PanicsWithValue(urcu.ErrForeignGuard, func() { a.RcuReadUnlock(&probeGuard{}) })

	a.RcuReadUnlock(g)
	assert.False(g.Active())
	assert.PanicsWithValue(urcu.ErrUnlockedGuard, func() { a.RcuReadUnlock(g) })

	assert.NoError(a.Close())
	assert.NoError(b.Close())
}
