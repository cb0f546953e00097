package urcu_test

import (
	"sync"
	"testing"

	"github.com/usnistgov/rcuguard/core/urcu"
)

func TestCountingAllocator(t *testing.T) {
	assert, _ := makeAR(t)

	a := urcu.NewCountingAllocator[int](urcu.NewPoolAllocator[int]())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p := a.Alloc()
				*p = j
				a.Free(p)
			}
		}()
	}
	wg.Wait()

	p := a.Alloc()
	assert.NotNil(p)
	st := a.Stats()
	assert.EqualValues(801, st.NAlloc)
	assert.EqualValues(800, st.NFree)
	assert.Equal(1, st.Live())

	h := urcu.NewCountingAllocator[string](nil)
	s := h.Alloc()
	assert.Equal("", *s)
	h.Free(s)
	assert.Equal(0, h.Stats().Live())
}
