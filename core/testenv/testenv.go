// Package testenv provides general test utilities.
package testenv

import (
	"os"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usnistgov/rcuguard/core/logging"
)

// MakeAR creates testify assert and require objects.
func MakeAR(t require.TestingT) (*assert.Assertions, *require.Assertions) {
	return assert.New(t), require.New(t)
}

// Exit flushes logs and exits the test process.
// It should be invoked from TestMain:
//
//	testenv.Exit(m.Run())
func Exit(code int) {
	logging.Sync()
	os.Exit(code)
}

// Eventually polls cond until it returns true or the timeout elapses.
// It returns the final result of cond.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
