// Package runningstat implements Knuth and Welford's method for computing the standard deviation.
package runningstat

import (
	"math"

	binutils "github.com/jfoster/binary-utilities"
	"github.com/zyedidia/generic"
)

// RunningStat collects statistics and allows computing mean and variance.
// Algorithm comes from https://www.johndcook.com/blog/standard_deviation/ .
//
// A RunningStat is not safe for concurrent use; combine per-goroutine instances with Snapshot.Add.
type RunningStat struct {
	mask uint64
	i    uint64
	n    uint64
	m1   float64
	m2   float64
}

// Init initializes the instance and clears existing data.
// sampleInterval: how often to collect sample, will be adjusted to nearest power of two and truncated between 1 and 2^30.
func (s *RunningStat) Init(sampleInterval int) {
	*s = RunningStat{
		mask: generic.Clamp(uint64(binutils.NearPowerOfTwo(int64(sampleInterval))), 1, 1<<30) - 1,
	}
}

// Push adds an input.
func (s *RunningStat) Push(x float64) {
	s.i++
	if (s.i-1)&s.mask != 0 {
		return
	}
	s.n++
	if s.n == 1 {
		s.m1 = x
		s.m2 = 0
		return
	}
	delta := x - s.m1
	s.m1 += delta / float64(s.n)
	s.m2 += delta * (x - s.m1)
}

// Read returns current counters as Snapshot.
func (s RunningStat) Read() Snapshot {
	return newSnapshot(s.i, s.n, s.m1, s.m2, false, 0, 0)
}

// IntStat is a RunningStat for unsigned integers that also tracks minimum and maximum.
// Minimum and maximum consider every input, including those skipped by sampling.
type IntStat struct {
	s   RunningStat
	min uint64
	max uint64
}

// Init initializes the instance and clears existing data.
// sampleInterval: how often to collect sample, will be adjusted to nearest power of two and truncated between 1 and 2^30.
func (s *IntStat) Init(sampleInterval int) {
	s.s.Init(sampleInterval)
	s.min = math.MaxUint64
	s.max = 0
}

// Push adds an input.
func (s *IntStat) Push(x uint64) {
	s.min = generic.Min(s.min, x)
	s.max = generic.Max(s.max, x)
	s.s.Push(float64(x))
}

// Read returns current counters as Snapshot.
func (s IntStat) Read() Snapshot {
	return newSnapshot(s.s.i, s.s.n, s.s.m1, s.s.m2, s.s.n > 0, s.min, s.max)
}
