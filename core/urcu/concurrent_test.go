package urcu_test

import (
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/usnistgov/rcuguard/core/testenv"
	"github.com/usnistgov/rcuguard/core/urcu"
)

func TestNoLostUpdates(t *testing.T) {
	assert, _ := makeAR(t)

	const nWriters = 64
	gd := urcu.NewGuardedList(urcu.ListConfig[int]{})
	defer gd.Value().Close()

	var wg sync.WaitGroup
	for i := 0; i < nWriters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gd.Write(func(l *urcu.List[int]) { l.PushBack(i) })
		}(i)
	}
	wg.Wait()

	values := collect(gd)
	slices.Sort(values)
	expected := make([]int, nWriters)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(expected, values)
}

func TestReadersDoNotBlock(t *testing.T) {
	assert, require := makeAR(t)

	gd := urcu.NewGuardedList(urcu.ListConfig[int]{})
	defer gd.Value().Close()
	gd.Write(func(l *urcu.List[int]) {
		for i := 0; i < 10; i++ {
			l.PushBack(i)
		}
	})

	const nHolders = 8
	hold := make(chan struct{})
	var ready, done sync.WaitGroup
	for i := 0; i < nHolders; i++ {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			h := gd.LockRead()
			defer h.Release()
			n := 0
			for range h.Get().All() {
				n++
			}
			ready.Done()
			<-hold
			assert.Equal(10, n)
		}()
	}
	ready.Wait()

	finished := make(chan []int)
	go func() {
		gd.Write(func(l *urcu.List[int]) {
			l.Erase(l.Begin())
			l.PushBack(10)
		})
		finished <- collect(gd)
	}()
	select {
	case values := <-finished:
		assert.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, values)
	case <-time.After(5 * time.Second):
		require.FailNow("blocked while readers hold their handles")
	}
	assert.Equal(1, gd.Value().Counters().Pending())

	close(hold)
	done.Wait()
	collect(gd)
	assert.Equal(0, gd.Value().Counters().Pending())
}

type payload struct {
	Magic uint64
	Seq   int
}

const payloadMagic = 0x5EED5EED

func TestIteratorStability(t *testing.T) {
	assert, _ := makeAR(t)

	var nReclaimed atomic.Int64
	nodes := urcu.NewCountingAllocator[urcu.Node[payload]](urcu.NewPoolAllocator[urcu.Node[payload]]())
	zombies := urcu.NewCountingAllocator[urcu.Zombie[payload]](urcu.NewPoolAllocator[urcu.Zombie[payload]]())
	gd := urcu.NewGuardedList(urcu.ListConfig[payload]{
		NodeAlloc:   nodes,
		ZombieAlloc: zombies,
		Reclaim: func(p *payload) {
			if p.Magic != payloadMagic {
				t.Errorf("reclaiming corrupted element %+v", *p)
			}
			nReclaimed.Add(1)
		},
	})

	var stop atomic.Bool
	var wg sync.WaitGroup
	var nBadReads atomic.Int64

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				gd.Read(func(l *urcu.List[payload]) {
					lastSeq := -1
					for it := l.Begin(); it.Valid(); it = it.Next() {
						p := it.Value()
						if p.Magic != payloadMagic || p.Seq <= lastSeq {
							nBadReads.Add(1)
						}
						lastSeq = p.Seq
					}
				})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h := gd.LockRead()
		defer h.Release()
		it := h.Get().Begin()
		for !stop.Load() {
			if it.Valid() {
				if it.Value().Magic != payloadMagic {
					nBadReads.Add(1)
				}
				it = it.Next()
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	seq := 0
	rng := rand.New(rand.NewPCG(1, 2))
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		gd.Write(func(l *urcu.List[payload]) {
			for j := 0; j < 4; j++ {
				l.PushBack(payload{Magic: payloadMagic, Seq: seq})
				seq++
			}
			for it := l.Begin(); it.Valid(); {
				if rng.IntN(3) == 0 {
					it = l.Erase(it)
				} else {
					it = it.Next()
				}
			}
		})
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(nBadReads.Load())

	collectPayload := func() {
		gd.Read(func(l *urcu.List[payload]) {
			for range l.All() {
			}
		})
	}
	collectPayload()
	cnt := gd.Value().Counters()
	assert.Equal(0, cnt.Pending())
	assert.EqualValues(cnt.Retired, nReclaimed.Load())
	assert.Equal(cnt.Len, nodes.Stats().Live())
	assert.Equal(1, zombies.Stats().Live())

	assert.NoError(gd.Value().Close())
	assert.Equal(0, nodes.Stats().Live())
	assert.Equal(0, zombies.Stats().Live())
	assert.EqualValues(seq, nReclaimed.Load())
}

func TestReclaimEventually(t *testing.T) {
	assert, _ := makeAR(t)

	var rl reclaimLog
	gd := urcu.NewGuardedList(urcu.ListConfig[int]{Reclaim: rl.Reclaim, Mutex: urcu.NewTimedMutex()})
	defer gd.Value().Close()

	const nErase = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < nErase; i++ {
			gd.Write(func(l *urcu.List[int]) {
				l.PushBack(i)
				l.Erase(l.Begin())
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < nErase; i++ {
			collect(gd)
		}
	}()
	wg.Wait()

	assert.True(testenv.Eventually(time.Second, func() bool {
		collect(gd)
		return rl.Total() == nErase
	}))
	for i := 0; i < nErase; i++ {
		assert.Equal(1, rl.Count(i))
	}
}

func TestTimedMutexWriter(t *testing.T) {
	assert, _ := makeAR(t)

	mutex := urcu.NewTimedMutex()
	gd := urcu.NewGuardedList(urcu.ListConfig[int]{Mutex: mutex})
	defer gd.Value().Close()
	assert.Same(mutex, gd.Value().Mutex())

	wh := gd.LockWrite()
	assert.True(mutex.TryLockTimeout(10 * time.Millisecond))
	mutex.Unlock()

	wh.Get().PushBack(1)
	assert.False(mutex.TryLockTimeout(10 * time.Millisecond))
	assert.Equal([]int{1}, collect(gd))
	wh.Release()

	assert.True(mutex.TryLock())
	mutex.Unlock()
}
