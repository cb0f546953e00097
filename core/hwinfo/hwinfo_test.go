package hwinfo_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/usnistgov/rcuguard/core/hwinfo"
	"github.com/usnistgov/rcuguard/core/testenv"
)

var makeAR = testenv.MakeAR

func TestCores(t *testing.T) {
	assert, _ := makeAR(t)

	cores := hwinfo.Cores{
		{ID: 0, NumaSocket: 0, PhysicalKey: 0},
		{ID: 1, NumaSocket: 0, PhysicalKey: 1},
		{ID: 2, NumaSocket: 1, PhysicalKey: 4096},
		{ID: 3, NumaSocket: 0, PhysicalKey: 0},
		{ID: 4, NumaSocket: 1, PhysicalKey: 4096},
	}
	assert.Equal([]int{0, 1, 2}, cores.ListPrimary())
	assert.Equal([]int{3, 4}, cores.ListSecondary())
	assert.Equal(1, cores.MaxNumaSocket())
	assert.Len(cores.ByNumaSocket()[0], 3)
	assert.Equal(hwinfo.Summary{Logical: 5, Physical: 3, NumaSockets: 2}, cores.Summary())

	assert.Equal(-1, hwinfo.Cores{}.MaxNumaSocket())
}

func TestDefault(t *testing.T) {
	assert, _ := makeAR(t)

	cores, e := hwinfo.Default.Cores()
	if e != nil {
		t.Skipf("CPU information unavailable: %v", e)
	}
	assert.NotEmpty(cores)
	assert.GreaterOrEqual(cores.Summary().Logical, cores.Summary().Physical)

	if os.Getenv("HWINFOTEST_SHOW") == "1" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(cores)
	} else {
		t.Log("Set HWINFOTEST_SHOW=1 to show output")
	}
}
