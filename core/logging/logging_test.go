package logging_test

import (
	"testing"

	"github.com/usnistgov/rcuguard/core/logging"
	"github.com/usnistgov/rcuguard/core/testenv"
	"go.uber.org/zap"
)

func TestLevels(t *testing.T) {
	assert, require := testenv.MakeAR(t)
	t.Setenv("RCUGUARD_LOG", "W")
	t.Setenv("RCUGUARD_LOG_LoggingTestB", "D")

	logA := logging.New("LoggingTestA")
	logB := logging.New("LoggingTestB")
	assert.False(logA.Core().Enabled(zap.InfoLevel))
	assert.True(logA.Core().Enabled(zap.WarnLevel))
	assert.True(logB.Core().Enabled(zap.DebugLevel))

	plA := logging.FindLevel("LoggingTestA")
	require.NotNil(plA)
	assert.EqualValues('W', plA.Level())

	nCallbacks := 0
	plA.SetCallback(func() { nCallbacks++ })
	require.NoError(logging.ApplyAssignments("LoggingTestA=E, LoggingTestB=I"))
	assert.Equal(1, nCallbacks)
	assert.EqualValues('E', plA.Level())
	assert.False(logA.Core().Enabled(zap.WarnLevel))
	assert.False(logB.Core().Enabled(zap.DebugLevel))
	assert.True(logB.Core().Enabled(zap.InfoLevel))

	assert.Error(logging.ApplyAssignments("=D"))

	pkgs := []string{}
	for _, pl := range logging.ListLevels() {
		pkgs = append(pkgs, pl.Package())
	}
	assert.Subset(pkgs, []string{"LoggingTestA", "LoggingTestB"})
}

func TestUnknownLetter(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	pl := logging.GetLevel("LoggingTestC")
	pl.SetLevel("X")
	assert.EqualValues('I', pl.Level())
	pl.SetLevel("")
	assert.EqualValues('I', pl.Level())
	pl.SetLevel("V")
	assert.EqualValues('V', pl.Level())
}
