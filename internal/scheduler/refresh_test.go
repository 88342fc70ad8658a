package scheduler

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// manualRunner records scheduled tasks and lets tests fire them by hand.
type manualRunner struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	interval  time.Duration
	fn        func()
	cancelled atomic.Bool
}

func (t *manualTask) Cancel() { t.cancelled.Store(true) }

func (r *manualRunner) Every(interval time.Duration, fn func()) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := &manualTask{interval: interval, fn: fn}
	r.tasks = append(r.tasks, task)
	return task
}

func (r *manualRunner) live() []*manualTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*manualTask
	for _, task := range r.tasks {
		if !task.cancelled.Load() {
			out = append(out, task)
		}
	}
	return out
}

type recordingCycle struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (c *recordingCycle) run(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	return c.err
}

func (c *recordingCycle) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

func TestRefreshEnableTwiceKeepsOnePendingTask(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{}
	r := NewRefresh(runner, 0, cycle.run, discard)
	r.SetQuery("London")

	r.Enable()
	r.Enable()

	require.Len(t, runner.tasks, 2)
	assert.True(t, runner.tasks[0].cancelled.Load(), "first task must be cancelled")
	require.Len(t, runner.live(), 1)
	assert.Equal(t, DefaultRefreshInterval, runner.live()[0].interval)
	assert.Equal(t, 1, r.Pending())
	assert.Equal(t, StateScheduled, r.State())
	assert.Empty(t, cycle.calls(), "enabling never fetches immediately")
}

func TestRefreshIgnoresTickFromReplacedTask(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{}
	r := NewRefresh(runner, time.Minute, cycle.run, discard)
	r.SetQuery("London")

	r.Enable()
	r.Enable()
	require.Len(t, runner.tasks, 2)

	// A tick already past the ticker's cancel check still reaches fire.
	runner.tasks[0].fn()
	assert.Empty(t, cycle.calls())

	runner.tasks[1].fn()
	assert.Equal(t, []string{"London"}, cycle.calls())
}

func TestRefreshFireRunsCycleWithCurrentQuery(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{}
	r := NewRefresh(runner, time.Minute, cycle.run, discard)
	r.SetQuery("London")
	r.Enable()

	r.SetQuery("  Paris ")
	runner.live()[0].fn()

	assert.Equal(t, []string{"Paris"}, cycle.calls())
	assert.Equal(t, StateScheduled, r.State())
	assert.Len(t, runner.tasks, 1, "changing the query does not reschedule")
}

func TestRefreshSkipsTickWithoutQuery(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{}
	r := NewRefresh(runner, time.Minute, cycle.run, discard)
	r.Enable()

	runner.live()[0].fn()

	assert.Empty(t, cycle.calls())
	assert.Equal(t, StateScheduled, r.State())
	assert.True(t, r.Enabled())
}

func TestRefreshDisable(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{}
	r := NewRefresh(runner, time.Minute, cycle.run, discard)
	r.SetQuery("London")
	r.Enable()
	task := runner.live()[0]

	r.Disable()

	assert.True(t, task.cancelled.Load())
	assert.Zero(t, r.Pending())
	assert.False(t, r.Enabled())
	assert.Equal(t, StateIdle, r.State())

	// A tick that raced the cancel is ignored.
	task.fn()
	assert.Empty(t, cycle.calls())

	// Disabling twice is harmless.
	r.Disable()
	assert.Equal(t, StateIdle, r.State())
}

func TestRefreshErrorKeepsSchedule(t *testing.T) {
	runner := &manualRunner{}
	cycle := &recordingCycle{err: errors.New("city not found")}
	r := NewRefresh(runner, time.Minute, cycle.run, discard)
	r.SetQuery("Atlantis")
	r.Enable()

	task := runner.live()[0]
	task.fn()
	task.fn()

	assert.Len(t, cycle.calls(), 2)
	assert.Equal(t, StateScheduled, r.State())
	assert.Equal(t, 1, r.Pending())
}

func TestRefreshStateWhileRunning(t *testing.T) {
	runner := &manualRunner{}
	entered := make(chan struct{})
	release := make(chan struct{})
	r := NewRefresh(runner, time.Minute, func(string) error {
		close(entered)
		<-release
		return nil
	}, discard)
	r.SetQuery("London")
	r.Enable()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.live()[0].fn()
	}()

	<-entered
	assert.Equal(t, StateRunning, r.State())

	// Disabling mid-cycle lets the cycle finish and lands in idle.
	r.Disable()
	assert.Equal(t, StateRunning, r.State())
	close(release)
	<-done
	assert.Equal(t, StateIdle, r.State())
}
