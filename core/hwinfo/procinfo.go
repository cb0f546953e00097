package hwinfo

import (
	"fmt"
	"math/big"
	"sync"

	procinfo "github.com/c9s/goprocinfo/linux"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	pathCPUInfo       = "/proc/cpuinfo"
	pathProcessStatus = "/proc/self/status"
	pathSystemNode    = "/sys/devices/system/node"
	maxPhysicalCore   = 4096
	maxNumaNode       = 32
)

type procinfoProvider struct {
	once  sync.Once
	cores Cores
	err   error
}

func (p *procinfoProvider) Cores() (Cores, error) {
	p.once.Do(func() {
		p.cores, p.err = p.read()
		if p.err != nil {
			logger.Warn("cannot read CPU information", zap.Error(p.err))
		}
	})
	return p.cores, p.err
}

func (p *procinfoProvider) read() (cores Cores, e error) {
	status, e := procinfo.ReadProcessStatus(pathProcessStatus)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", pathProcessStatus, e)
	}
	allowed := &big.Int{}
	for _, word := range status.CpusAllowed {
		allowed.Lsh(allowed, 32)
		allowed.Add(allowed, big.NewInt(int64(word)))
	}

	cpuInfo, e := procinfo.ReadCPUInfo(pathCPUInfo)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", pathCPUInfo, e)
	}

	hasNuma := unix.Access(pathSystemNode, unix.F_OK) == nil
	for _, processor := range cpuInfo.Processors {
		if allowed.Bit(int(processor.Id)) == 0 || processor.CoreId >= maxPhysicalCore {
			continue
		}
		numa := 0
		if hasNuma {
			var ok bool
			if numa, ok = findNumaSocket(processor); !ok {
				continue
			}
		}
		cores = append(cores, CoreInfo{
			ID:          int(processor.Id),
			NumaSocket:  numa,
			PhysicalKey: maxPhysicalCore*int(processor.PhysicalId) + int(processor.CoreId),
		})
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("%s: no usable processor", pathCPUInfo)
	}
	return cores, nil
}

func findNumaSocket(processor procinfo.Processor) (int, bool) {
	for i := 0; i < maxNumaNode; i++ {
		path := fmt.Sprintf("%s/node%d/cpu%d", pathSystemNode, i, processor.Id)
		if unix.Access(path, unix.F_OK) == nil {
			return i, true
		}
	}
	return -1, false
}
