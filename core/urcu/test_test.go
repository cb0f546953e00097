package urcu_test

import (
	"testing"

	"github.com/usnistgov/rcuguard/core/testenv"
)

var makeAR = testenv.MakeAR

func TestMain(m *testing.M) {
	testenv.Exit(m.Run())
}
