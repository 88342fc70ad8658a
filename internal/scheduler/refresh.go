package scheduler

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRefreshInterval is the auto-refresh period.
const DefaultRefreshInterval = 30 * time.Second

// State is the refresh scheduler's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
)

// Cycle performs one fetch-and-merge for query. Its error is logged and
// otherwise ignored; the schedule keeps going.
type Cycle func(query string) error

// Refresh re-runs a fetch cycle at a fixed interval while enabled. It holds
// at most one pending task: enabling again replaces the previous one.
type Refresh struct {
	runner   Runner
	interval time.Duration
	cycle    Cycle
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	enabled bool
	query   string
	handle  Handle
	// gen identifies the current handle; ticks from replaced handles are ignored.
	gen uint64
}

// NewRefresh creates a disabled scheduler. A non-positive interval selects
// DefaultRefreshInterval.
func NewRefresh(runner Runner, interval time.Duration, cycle Cycle, logger *slog.Logger) *Refresh {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresh{
		runner:   runner,
		interval: interval,
		cycle:    cycle,
		logger:   logger,
		state:    StateIdle,
	}
}

// Enable cancels any pending task and schedules a new one, first firing one
// interval from now. It does not run a cycle immediately.
func (r *Refresh) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		r.handle.Cancel()
	}
	r.enabled = true
	r.gen++
	gen := r.gen
	r.handle = r.runner.Every(r.interval, func() { r.fire(gen) })
	if r.state != StateRunning {
		r.state = StateScheduled
	}
	r.logger.Info("auto refresh enabled", "interval", r.interval, "query", r.query)
}

// Disable cancels the pending task. A cycle already running completes but
// nothing is rescheduled.
func (r *Refresh) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
	r.gen++
	if r.enabled {
		r.logger.Info("auto refresh disabled")
	}
	r.enabled = false
	if r.state != StateRunning {
		r.state = StateIdle
	}
}

// SetQuery changes the location used by subsequent cycles. It never touches
// the pending task.
func (r *Refresh) SetQuery(query string) {
	r.mu.Lock()
	r.query = strings.TrimSpace(query)
	r.mu.Unlock()
}

// Query returns the current location query.
func (r *Refresh) Query() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}

// Enabled reports whether auto refresh is on.
func (r *Refresh) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// State reports the current lifecycle state.
func (r *Refresh) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Interval returns the refresh period.
func (r *Refresh) Interval() time.Duration {
	return r.interval
}

// Pending reports the number of scheduled tasks, 0 or 1.
func (r *Refresh) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return 0
	}
	return 1
}

// fire runs one cycle for the handle of generation gen. A tick without a
// query, or from a handle that has since been replaced, is skipped.
func (r *Refresh) fire(gen uint64) {
	r.mu.Lock()
	if !r.enabled || gen != r.gen || r.query == "" {
		r.mu.Unlock()
		return
	}
	query := r.query
	r.state = StateRunning
	r.mu.Unlock()

	err := r.cycle(query)
	if err != nil {
		r.logger.Warn("refresh cycle failed", "query", query, "error", err)
	}

	r.mu.Lock()
	if r.enabled {
		r.state = StateScheduled
	} else {
		r.state = StateIdle
	}
	r.mu.Unlock()
}
