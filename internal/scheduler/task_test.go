package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockRunnerFiresEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := NewClockRunner(clock)

	var runs atomic.Int32
	h := runner.Every(time.Second, func() { runs.Add(1) })
	defer h.Cancel()

	assert.Zero(t, runs.Load(), "no run before the first interval")

	for i := int32(1); i <= 3; i++ {
		clock.Advance(time.Second)
		want := i
		require.Eventually(t, func() bool { return runs.Load() == want }, time.Second, time.Millisecond)
	}
}

func TestClockRunnerCancelStopsTask(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := NewClockRunner(clock)

	var runs atomic.Int32
	h := runner.Every(time.Second, func() { runs.Add(1) })

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	h.Cancel()
	h.Cancel()
	<-h.(*tickerHandle).Done()

	clock.Advance(5 * time.Second)
	assert.Equal(t, int32(1), runs.Load())
}

func TestCronRunnerRunsAndCancels(t *testing.T) {
	runner := NewCronRunner(discard)
	defer runner.Stop()

	var runs atomic.Int32
	h := runner.Every(20*time.Millisecond, func() { runs.Add(1) })
	assert.Equal(t, 1, runner.Jobs())

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	h.Cancel()
	assert.Zero(t, runner.Jobs())

	settled := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1, "at most an in-flight run completes after cancel")
}
