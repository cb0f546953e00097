// Package hwinfo gathers hardware information.
package hwinfo

import (
	"github.com/usnistgov/rcuguard/core/logging"
	"github.com/zyedidia/generic"
)

var logger = logging.New("hwinfo")

// CoreInfo describes a logical CPU core.
type CoreInfo struct {
	ID          int `json:"id"`
	NumaSocket  int `json:"numaSocket"`
	PhysicalKey int `json:"physicalKey"` // unique among physical cores
}

// Cores contains information about CPU cores.
type Cores []CoreInfo

// ByNumaSocket classifies cores as map[NumaSocket]Cores.
func (cores Cores) ByNumaSocket() (m map[int]Cores) {
	m = map[int]Cores{}
	for _, core := range cores {
		m[core.NumaSocket] = append(m[core.NumaSocket], core)
	}
	return m
}

// MaxNumaSocket determines the maximum NUMA socket.
func (cores Cores) MaxNumaSocket() int {
	maxSocket := -1
	for _, core := range cores {
		maxSocket = generic.Max(maxSocket, core.NumaSocket)
	}
	return maxSocket
}

// ListPrimary returns logical cores that are the first logical core in each physical core.
func (cores Cores) ListPrimary() []int {
	return cores.listHyperThread(false)
}

// ListSecondary returns logical cores that are not in ListPrimary().
func (cores Cores) ListSecondary() []int {
	return cores.listHyperThread(true)
}

func (cores Cores) listHyperThread(secondary bool) (list []int) {
	seen := map[int]bool{}
	for _, core := range cores {
		if seen[core.PhysicalKey] == secondary {
			list = append(list, core.ID)
		}
		seen[core.PhysicalKey] = true
	}
	return list
}

// Summary counts cores.
func (cores Cores) Summary() Summary {
	return Summary{
		Logical:     len(cores),
		Physical:    len(cores.ListPrimary()),
		NumaSockets: len(cores.ByNumaSocket()),
	}
}

// Summary contains core counts.
type Summary struct {
	Logical     int `json:"logical"`
	Physical    int `json:"physical"`
	NumaSockets int `json:"numaSockets"`
}

// Provider provides information about hardware.
type Provider interface {
	// Cores provides information about CPU cores usable by this process.
	Cores() (Cores, error)
}

// Default is the default Provider implementation.
var Default Provider = &procinfoProvider{}
