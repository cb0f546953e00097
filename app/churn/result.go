package churn

import (
	"fmt"
	"time"

	"github.com/usnistgov/rcuguard/core/hwinfo"
	"github.com/usnistgov/rcuguard/core/runningstat"
	"github.com/usnistgov/rcuguard/core/urcu"
)

// Progress is a periodic report during a run.
type Progress struct {
	Elapsed    time.Duration `json:"elapsed"`
	Delta      urcu.Counters `json:"delta"` // list counters since previous report
	Pending    int           `json:"pending"`
	Pushes     uint64        `json:"pushes"`
	Erases     uint64        `json:"erases"`
	Reads      uint64        `json:"reads"`
	Violations int           `json:"violations"`
}

func (p Progress) String() string {
	return fmt.Sprintf("%v %v pending=%d %dP %dE %dR %dV",
		p.Elapsed.Truncate(time.Millisecond), p.Delta, p.Pending,
		p.Pushes, p.Erases, p.Reads, p.Violations)
}

// Result contains the outcome of a run.
type Result struct {
	Elapsed time.Duration `json:"elapsed"`

	// Counters are list counters after the final grace cycle, before Close.
	Counters urcu.Counters `json:"counters"`

	Pushes   uint64 `json:"pushes"`
	Erases   uint64 `json:"erases"`
	Reads    uint64 `json:"reads"`
	Visited  uint64 `json:"visited"`
	Holds    uint64 `json:"holds"`
	Reclaims uint64 `json:"reclaims"`

	ReadLatency  runningstat.Snapshot `json:"readLatency"`
	WriteLatency runningstat.Snapshot `json:"writeLatency"`

	// Nodes and Zombies are allocator counters after Close.
	Nodes   urcu.AllocStats `json:"nodes"`
	Zombies urcu.AllocStats `json:"zombies"`

	Violations int `json:"violations"`

	// Host describes CPU cores available to the process, if known.
	Host hwinfo.Summary `json:"host"`
}

func (r Result) String() string {
	return fmt.Sprintf("%v %dP %dE %dR %dH final=%d reclaims=%d read=%v/%v write=%v/%v violations=%d",
		r.Elapsed.Truncate(time.Millisecond), r.Pushes, r.Erases, r.Reads, r.Holds,
		r.Counters.Len, r.Reclaims,
		r.ReadLatency.MeanDuration(), r.ReadLatency.MaxDuration(),
		r.WriteLatency.MeanDuration(), r.WriteLatency.MaxDuration(),
		r.Violations)
}
