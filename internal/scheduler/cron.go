package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

// CronRunner runs tasks as gocron jobs on one shared scheduler. Each task is
// tagged with a unique id so cancelling it removes exactly that job.
type CronRunner struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewCronRunner creates a runner backed by a UTC gocron scheduler.
func NewCronRunner(logger *slog.Logger) *CronRunner {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	s.WaitForScheduleAll()
	return &CronRunner{
		scheduler: s,
		logger:    logger,
	}
}

// Every registers fn as a singleton job and starts the scheduler on first use.
func (r *CronRunner) Every(interval time.Duration, fn func()) Handle {
	tag := uuid.NewString()

	_, err := r.scheduler.Every(interval).Tag(tag).Do(fn)
	if err != nil {
		r.logger.Error("schedule job failed", "interval", interval, "error", err)
		return noopHandle{}
	}

	r.mu.Lock()
	if !r.started {
		r.scheduler.StartAsync()
		r.started = true
	}
	r.mu.Unlock()

	return &cronHandle{runner: r, tag: tag}
}

// Jobs reports how many tasks are currently scheduled.
func (r *CronRunner) Jobs() int {
	return r.scheduler.Len()
}

// Stop stops the scheduler and cancels any future jobs.
func (r *CronRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		r.scheduler.Stop()
		r.started = false
	}
}

type cronHandle struct {
	runner *CronRunner
	tag    string
	once   sync.Once
}

func (h *cronHandle) Cancel() {
	h.once.Do(func() {
		if err := h.runner.scheduler.RemoveByTag(h.tag); err != nil {
			h.runner.logger.Warn("remove job failed", "tag", h.tag, "error", err)
		}
	})
}

type noopHandle struct{}

func (noopHandle) Cancel() {}
