// Package churn runs a concurrent workload against a guarded list and checks its invariants.
package churn

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/usnistgov/rcuguard/core/events"
	"github.com/usnistgov/rcuguard/core/hwinfo"
	"github.com/usnistgov/rcuguard/core/logging"
	"github.com/usnistgov/rcuguard/core/runningstat"
	"github.com/usnistgov/rcuguard/core/urcu"
	"github.com/zyedidia/generic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var logger = logging.New("churn")

// ItemMagic marks a well-formed Item.
const ItemMagic = 0x5EED5EED

const (
	poisonMagic = 0xDEADBEEF

	// eraseWindow bounds how far from the head a writer walks to choose an erase victim.
	eraseWindow = 64

	// holdWalk is how many elements a holder visits from its pinned position.
	holdWalk = 16

	// maxLoggedViolations limits violations kept in the returned error.
	maxLoggedViolations = 16
)

const (
	evtProgress  = "progress"
	evtViolation = "violation"
)

// ErrAlreadyRan indicates Run was invoked more than once.
var ErrAlreadyRan = errors.New("runner already ran")

// Item is a list element.
// Seq is assigned under the write lock, so a forward traversal sees strictly ascending Seq.
type Item struct {
	Magic  uint32
	Writer int
	Seq    uint64
}

// Runner drives readers, holders and writers against one guarded list.
type Runner struct {
	cfg     Config
	emitter *events.Emitter
	gd      *urcu.Guarded[*urcu.List[Item]]
	nodes   *urcu.CountingAllocator[urcu.Node[Item]]
	zombies *urcu.CountingAllocator[urcu.Zombie[Item]]
	seq     uint64 // protected by write lock

	ran       atomic.Bool
	nPushes   atomic.Uint64
	nErases   atomic.Uint64
	nReads    atomic.Uint64
	nVisited  atomic.Uint64
	nHolds    atomic.Uint64
	nReclaims atomic.Uint64

	violMutex   sync.Mutex
	violations  error
	nViolations atomic.Int64
}

func makeAllocator[E any](kind string) *urcu.CountingAllocator[E] {
	if kind == AllocatorPool {
		return urcu.NewCountingAllocator[E](urcu.NewPoolAllocator[E]())
	}
	return urcu.NewCountingAllocator[E](nil)
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	r := &Runner{
		cfg:     cfg,
		emitter: events.NewEmitter(),
		nodes:   makeAllocator[urcu.Node[Item]](cfg.Allocator),
		zombies: makeAllocator[urcu.Zombie[Item]](cfg.Allocator),
	}
	var mutex sync.Locker = &sync.Mutex{}
	if cfg.Mutex == MutexTimed {
		mutex = urcu.NewTimedMutex()
	}
	r.gd = urcu.NewGuardedList(urcu.ListConfig[Item]{
		Mutex:       mutex,
		NodeAlloc:   r.nodes,
		ZombieAlloc: r.zombies,
		Reclaim:     r.reclaim,
	})
	return r, nil
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// OnProgress registers a callback that is invoked every ReportInterval.
func (r *Runner) OnProgress(cb func(p Progress)) (cancel func()) {
	return r.emitter.On(evtProgress, cb)
}

// OnViolation registers a callback that is invoked on every invariant violation.
// It may be invoked concurrently from worker goroutines.
func (r *Runner) OnViolation(cb func(e error)) (cancel func()) {
	return r.emitter.On(evtViolation, cb)
}

func (r *Runner) violate(e error) {
	n := r.nViolations.Add(1)
	r.emitter.Emit(evtViolation, e)
	if n > maxLoggedViolations {
		return
	}
	logger.Error("invariant violation", zap.Error(e))
	r.violMutex.Lock()
	defer r.violMutex.Unlock()
	r.violations = multierr.Append(r.violations, e)
}

func (r *Runner) checkItem(item Item, act string) bool {
	if item.Magic != ItemMagic {
		r.violate(fmt.Errorf("%s observed malformed item %+v", act, item))
		return false
	}
	return true
}

func (r *Runner) reclaim(item *Item) {
	r.checkItem(*item, "reclaim")
	item.Magic = poisonMagic
	r.nReclaims.Add(1)
}

func (r *Runner) push(list *urcu.List[Item], writer int) {
	list.PushBack(Item{Magic: ItemMagic, Writer: writer, Seq: r.seq})
	r.seq++
	r.nPushes.Add(1)
}

// erase removes the k-th element, and erases it again to confirm idempotence.
func (r *Runner) erase(list *urcu.List[Item], k int) {
	it := list.Begin()
	for ; k > 0 && it.Valid(); k-- {
		it = it.Next()
	}
	if !it.Valid() {
		return
	}
	next := list.Erase(it)
	if again := list.Erase(it); !again.Equal(next) {
		r.violate(errors.New("repeated erase returned a different successor"))
	}
	r.nErases.Add(1)
}

func (r *Runner) fill() {
	r.gd.Write(func(list *urcu.List[Item]) {
		for range r.cfg.InitialSize {
			r.push(list, -1)
		}
	})
}

func (r *Runner) readLoop(ctx context.Context, stat *runningstat.IntStat) {
	for ctx.Err() == nil {
		t0 := time.Now()
		h := r.gd.LockRead()
		list := h.Get()
		var prev uint64
		n := 0
		for it := list.CBegin(); it.Valid(); it = it.Next() {
			item := it.Value()
			if !r.checkItem(item, "reader") {
				break
			}
			if n > 0 && item.Seq <= prev {
				r.violate(fmt.Errorf("reader observed seq %d after %d", item.Seq, prev))
				break
			}
			prev = item.Seq
			n++
		}
		h.Release()
		stat.Push(uint64(time.Since(t0)))
		r.nReads.Add(1)
		r.nVisited.Add(uint64(n))
	}
}

// holdLoop pins an element under a read handle for HoldTime, then verifies
// the element and its successors are still intact even if erased meanwhile.
func (r *Runner) holdLoop(ctx context.Context) {
	timer := time.NewTimer(r.cfg.HoldTime.Duration())
	defer timer.Stop()
	for ctx.Err() == nil {
		h := r.gd.LockRead()
		pinned := h.Get().CBegin()

		timer.Reset(r.cfg.HoldTime.Duration())
		select {
		case <-ctx.Done():
		case <-timer.C:
		}

		it := pinned
		for i := 0; i < holdWalk && it.Valid(); i++ {
			if !r.checkItem(it.Value(), "holder") {
				break
			}
			it = it.Next()
		}
		h.Release()
		r.nHolds.Add(1)
	}
}

func (r *Runner) writeLoop(ctx context.Context, writer int, rng *rand.Rand, stat *runningstat.IntStat) {
	for ctx.Err() == nil {
		t0 := time.Now()
		h := r.gd.LockWrite()
		list := h.Get()
		for range r.cfg.BatchSize {
			n := list.Len()
			if n > 0 && (n >= r.cfg.MaxSize || rng.Float64() < r.cfg.EraseRatio) {
				r.erase(list, rng.IntN(generic.Min(n, eraseWindow)))
			} else {
				r.push(list, writer)
			}
		}
		h.Release()
		stat.Push(uint64(time.Since(t0)))
	}
}

func (r *Runner) progress(ctx context.Context, t0 time.Time) {
	interval := r.cfg.ReportInterval.Duration()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	list := r.gd.Value()
	prev := list.Counters()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cnt := list.Counters()
		r.emitter.Emit(evtProgress, Progress{
			Elapsed:    time.Since(t0),
			Delta:      cnt.Sub(prev),
			Pending:    cnt.Pending(),
			Pushes:     r.nPushes.Load(),
			Erases:     r.nErases.Load(),
			Reads:      r.nReads.Load(),
			Violations: int(r.nViolations.Load()),
		})
		prev = cnt
	}
}

// Run executes the workload for the configured duration or until ctx is canceled.
// Run may only be invoked once; the list is closed upon return.
// The returned error combines invariant violations, if any.
func (r *Runner) Run(ctx context.Context) (res Result, e error) {
	if !r.ran.CompareAndSwap(false, true) {
		return res, ErrAlreadyRan
	}

	logger.Info("churn start",
		zap.Int("readers", r.cfg.Readers),
		zap.Int("writers", r.cfg.Writers),
		zap.Int("holders", r.cfg.Holders),
		zap.Duration("duration", r.cfg.Duration.Duration()),
		zap.String("allocator", r.cfg.Allocator),
		zap.String("mutex", r.cfg.Mutex),
	)
	if cores, e := hwinfo.Default.Cores(); e == nil {
		res.Host = cores.Summary()
		if nWorkers := r.cfg.Readers + r.cfg.Writers + r.cfg.Holders; nWorkers > res.Host.Logical {
			logger.Info("workers outnumber logical cores", zap.Int("workers", nWorkers), zap.Int("cores", res.Host.Logical))
		}
	}
	r.fill()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration.Duration())
	defer cancel()
	t0 := time.Now()

	readStats := make([]runningstat.IntStat, r.cfg.Readers)
	writeStats := make([]runningstat.IntStat, r.cfg.Writers)
	var wg sync.WaitGroup
	for i := range readStats {
		readStats[i].Init(1)
		wg.Add(1)
		go func(stat *runningstat.IntStat) {
			defer wg.Done()
			r.readLoop(ctx, stat)
		}(&readStats[i])
	}
	for range r.cfg.Holders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.holdLoop(ctx)
		}()
	}
	for i := range writeStats {
		writeStats[i].Init(1)
		rng := rand.New(rand.NewPCG(r.cfg.Seed, uint64(i)))
		wg.Add(1)
		go func(writer int, stat *runningstat.IntStat) {
			defer wg.Done()
			r.writeLoop(ctx, writer, rng, stat)
		}(i, &writeStats[i])
	}

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		r.progress(ctx, t0)
	}()

	wg.Wait()
	<-progressDone
	res.Elapsed = time.Since(t0)

	for _, stat := range readStats {
		res.ReadLatency = res.ReadLatency.Add(stat.Read())
	}
	for _, stat := range writeStats {
		res.WriteLatency = res.WriteLatency.Add(stat.Read())
	}

	r.verify(&res)

	res.Pushes = r.nPushes.Load()
	res.Erases = r.nErases.Load()
	res.Reads = r.nReads.Load()
	res.Visited = r.nVisited.Load()
	res.Holds = r.nHolds.Load()
	res.Reclaims = r.nReclaims.Load()
	res.Violations = int(r.nViolations.Load())

	logger.Info("churn finish", zap.Stringer("result", res))
	r.violMutex.Lock()
	defer r.violMutex.Unlock()
	return res, r.violations
}

// verify runs a final grace cycle, closes the list, and checks end-of-run invariants.
// It must be called after every worker has stopped.
func (r *Runner) verify(res *Result) {
	// With no other guard registered, one read cycle reclaims every retired node.
	r.gd.Read(func(*urcu.List[Item]) {})

	list := r.gd.Value()
	res.Counters = list.Counters()
	pushes, erases := r.nPushes.Load(), r.nErases.Load()
	if want := int(pushes - erases); res.Counters.Len != want {
		r.violate(fmt.Errorf("list length %d, expected %d pushes minus %d erases", res.Counters.Len, pushes, erases))
	}
	if res.Counters.Retired != erases {
		r.violate(fmt.Errorf("%d nodes retired, expected %d", res.Counters.Retired, erases))
	}
	if pending := res.Counters.Pending(); pending != 0 {
		r.violate(fmt.Errorf("%d retired nodes not reclaimed after grace cycle", pending))
	}
	if live := r.nodes.Stats().Live(); live != res.Counters.Len {
		r.violate(fmt.Errorf("%d nodes allocated, expected %d", live, res.Counters.Len))
	}

	if e := list.Close(); e != nil {
		r.violate(e)
	}
	res.Nodes, res.Zombies = r.nodes.Stats(), r.zombies.Stats()
	if live := res.Nodes.Live(); live != 0 {
		r.violate(fmt.Errorf("%d nodes leaked after close", live))
	}
	if live := res.Zombies.Live(); live != 0 {
		r.violate(fmt.Errorf("%d zombie records leaked after close", live))
	}
	if reclaims := r.nReclaims.Load(); reclaims != pushes {
		r.violate(fmt.Errorf("%d elements reclaimed, expected %d", reclaims, pushes))
	}
}
