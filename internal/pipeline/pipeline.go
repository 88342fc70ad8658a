package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/synthetic"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrStopped is returned once the pipeline has been stopped.
	ErrStopped = errors.New("pipeline stopped")
	// ErrNotRunning is returned by operations that need a started pipeline.
	ErrNotRunning = errors.New("pipeline not running")
)

// Sink consumes published snapshots and status messages. Implementations
// must not block: the pipeline calls them from its owner loop.
type Sink interface {
	PublishSnapshot(snapshot weather.Snapshot)
	PublishStatus(status weather.Status)
}

// Options configures a Pipeline.
type Options struct {
	Query           string
	AutoRefresh     bool
	RefreshInterval time.Duration
	TickInterval    time.Duration
}

// Pipeline owns all mutable dashboard state. A single owner goroutine
// applies merges and ticks in arrival order; fetches run elsewhere and hand
// their results to it over the events channel.
type Pipeline struct {
	fetcher weather.Fetcher
	runner  scheduler.Runner
	sink    Sink
	gen     *synthetic.Generator
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	tickInterval time.Duration
	refresh      *scheduler.Refresh

	events chan event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the run loop.
	current weather.Snapshot

	// Read side, safe from any goroutine.
	snapshot atomic.Pointer[weather.Snapshot]
	status   atomic.Pointer[weather.Status]
	ready    atomic.Bool

	mu          sync.Mutex
	started     bool
	running     bool
	stopped     bool
	autoRefresh bool
	tickHandle  scheduler.Handle
}

// New creates a stopped pipeline.
func New(
	fetcher weather.Fetcher,
	runner scheduler.Runner,
	sink Sink,
	gen *synthetic.Generator,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = synthetic.DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		fetcher:      fetcher,
		runner:       runner,
		sink:         sink,
		gen:          gen,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		tickInterval: opts.TickInterval,
		events:       make(chan event, 16),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		autoRefresh:  opts.AutoRefresh,
	}

	p.refresh = scheduler.NewRefresh(runner, opts.RefreshInterval, p.autoCycle, logger)
	p.refresh.SetQuery(opts.Query)

	p.current = weather.Snapshot{
		Query:     p.refresh.Query(),
		Daily:     []weather.DailySummary{},
		Hourly:    []weather.Point{},
		Synthetic: []weather.Point{},
		UpdatedAt: clock.Now(),
	}
	initial := p.current
	p.snapshot.Store(&initial)
	p.status.Store(&weather.Status{Level: weather.StatusInfo, Message: "Ready", Time: clock.Now()})

	return p
}

// Start launches the owner loop and the synthetic ticker, and enables auto
// refresh when configured. Calling Start on a running pipeline is a no-op.
// The pipeline stops by itself when ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	if p.running {
		return nil
	}
	p.started = true
	p.running = true

	go p.run()
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.ctx.Done():
		}
	}()

	p.tickHandle = p.runner.Every(p.tickInterval, func() { p.send(tickEvent{}) })
	if p.autoRefresh {
		p.refresh.Enable()
		p.metrics.RefreshEnabled.Set(1)
	}

	p.metrics.PipelineRunning.Set(1)
	p.logger.Info("pipeline started",
		"query", p.refresh.Query(),
		"auto_refresh", p.autoRefresh,
		"refresh_interval", p.refresh.Interval(),
		"tick_interval", p.tickInterval,
	)
	return nil
}

// Stop cancels every timer, stops the owner loop and waits for it to exit.
// No snapshot is published after any Stop call returns, including
// concurrent ones. Stop is idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	started := p.started
	first := !p.stopped
	if first {
		p.stopped = true
		p.running = false

		p.refresh.Disable()
		if p.tickHandle != nil {
			p.tickHandle.Cancel()
		}
		p.cancel()
	}
	p.mu.Unlock()

	if started {
		<-p.done
	}
	if first {
		p.metrics.PipelineRunning.Set(0)
		p.metrics.RefreshEnabled.Set(0)
		p.logger.Info("pipeline stopped")
	}
}

// FetchNow runs a manual fetch for query and waits for its merge. The query
// becomes the current query; the auto refresh timer is left alone.
func (p *Pipeline) FetchNow(ctx context.Context, query string) (weather.Snapshot, error) {
	q, err := weather.NormalizeQuery(query)
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues("manual", weather.KindOf(err)).Inc()
		p.reportFailure(query, err)
		return weather.Snapshot{}, err
	}
	if !p.isRunning() {
		return weather.Snapshot{}, ErrNotRunning
	}

	p.refresh.SetQuery(q)
	return p.cycle(ctx, q, "manual")
}

// SetQuery changes the location used by auto refresh.
func (p *Pipeline) SetQuery(query string) {
	p.refresh.SetQuery(query)
}

// Query returns the current location query.
func (p *Pipeline) Query() string {
	return p.refresh.Query()
}

// EnableRefresh turns auto refresh on. Enabling again replaces the pending
// timer rather than adding a second one.
func (p *Pipeline) EnableRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.autoRefresh = true
	if p.running {
		p.refresh.Enable()
		p.metrics.RefreshEnabled.Set(1)
	}
}

// DisableRefresh turns auto refresh off and cancels the pending timer.
func (p *Pipeline) DisableRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.autoRefresh = false
	p.refresh.Disable()
	p.metrics.RefreshEnabled.Set(0)
}

// RefreshEnabled reports whether auto refresh is on.
func (p *Pipeline) RefreshEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoRefresh
}

// RefreshState reports the refresh scheduler state.
func (p *Pipeline) RefreshState() scheduler.State {
	return p.refresh.State()
}

// Snapshot returns the most recently published snapshot.
func (p *Pipeline) Snapshot() weather.Snapshot {
	return *p.snapshot.Load()
}

// Status returns the latest status message.
func (p *Pipeline) Status() weather.Status {
	return *p.status.Load()
}

// CheckReadiness returns nil once a fetch has been merged.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no weather data fetched yet")
	}
	return nil
}

func (p *Pipeline) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// autoCycle is the refresh scheduler's callback.
func (p *Pipeline) autoCycle(query string) error {
	_, err := p.cycle(p.ctx, query, "auto")
	return err
}

// cycle fetches off the owner loop, then hands the result to it for merging.
// A failure publishes a status message and leaves the snapshot untouched.
func (p *Pipeline) cycle(ctx context.Context, query, trigger string) (weather.Snapshot, error) {
	p.send(statusEvent{status: weather.Status{
		Level:   weather.StatusInfo,
		Message: "Fetching weather data for " + query + "...",
	}})

	start := p.clock.Now()
	obs, points, err := p.fetcher.Fetch(ctx, query)
	p.metrics.FetchDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(trigger, weather.KindOf(err)).Inc()
		p.reportFailure(query, err)
		return weather.Snapshot{}, err
	}
	p.metrics.FetchRequests.WithLabelValues(trigger, "success").Inc()

	reply := make(chan weather.Snapshot, 1)
	if !p.send(mergeEvent{query: query, obs: obs, points: points, reply: reply}) {
		return weather.Snapshot{}, ErrStopped
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return weather.Snapshot{}, ctx.Err()
	case <-p.ctx.Done():
		return weather.Snapshot{}, ErrStopped
	}
}

func (p *Pipeline) reportFailure(query string, err error) {
	p.logger.Warn("fetch failed", "query", query, "kind", weather.KindOf(err), "error", err)
	p.send(statusEvent{status: weather.Status{
		Level:   weather.StatusError,
		Message: weather.StatusMessage(query, err),
		Kind:    weather.KindOf(err),
	}})
}

// send delivers ev to the owner loop. It reports false once the pipeline has
// stopped. Before Start, events are queued up to the buffer size and dropped
// beyond it.
func (p *Pipeline) send(ev event) bool {
	if !p.isRunning() {
		select {
		case p.events <- ev:
			return true
		default:
			return false
		}
	}
	select {
	case p.events <- ev:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev := <-p.events:
			// Both cases may be ready together; never apply after stop.
			if p.ctx.Err() != nil {
				return
			}
			ev.apply(p)
		}
	}
}

func (p *Pipeline) publish(snap weather.Snapshot) {
	p.snapshot.Store(&snap)
	p.sink.PublishSnapshot(snap)
}

func (p *Pipeline) publishStatus(st weather.Status) {
	if st.Time.IsZero() {
		st.Time = p.clock.Now()
	}
	p.status.Store(&st)
	p.sink.PublishStatus(st)
}
