package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle is a pending periodic task. Cancel is idempotent; once it returns no
// new invocation of the task starts.
type Handle interface {
	Cancel()
}

// Runner schedules fn every interval. The first run happens one interval
// after Every is called, never immediately. Invocations of one task never
// overlap; ticks that arrive while fn is still running are dropped.
type Runner interface {
	Every(interval time.Duration, fn func()) Handle
}

// ClockRunner runs tasks on clockwork tickers. Tests pass a fake clock and
// drive time with Advance.
type ClockRunner struct {
	clock clockwork.Clock
}

// NewClockRunner creates a Runner on clock; nil selects the real clock.
func NewClockRunner(clock clockwork.Clock) *ClockRunner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockRunner{clock: clock}
}

// Every starts a ticker goroutine for fn.
func (r *ClockRunner) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{
		ticker: r.clock.NewTicker(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go h.loop(fn)
	return h
}

type tickerHandle struct {
	ticker clockwork.Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) loop(fn func()) {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			return
		case <-h.ticker.Chan():
			// A tick and a cancel can be ready together; cancel wins.
			select {
			case <-h.stop:
				return
			default:
			}
			fn()
		}
	}
}

// Cancel stops the ticker synchronously so no further tick is delivered.
// It does not wait for a running fn, which may itself call Cancel.
func (h *tickerHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.stop)
	})
}

// Done is closed when the task goroutine has exited.
func (h *tickerHandle) Done() <-chan struct{} {
	return h.done
}
