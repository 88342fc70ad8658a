// Package sink holds output sinks that consume pipeline snapshots.
package sink

import (
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Target is anything that consumes snapshots and status messages without
// blocking the caller.
type Target interface {
	PublishSnapshot(snapshot weather.Snapshot)
	PublishStatus(status weather.Status)
}

// Fanout forwards every message to each target in order.
type Fanout []Target

func (f Fanout) PublishSnapshot(snapshot weather.Snapshot) {
	for _, t := range f {
		t.PublishSnapshot(snapshot)
	}
}

func (f Fanout) PublishStatus(status weather.Status) {
	for _, t := range f {
		t.PublishStatus(status)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) PublishSnapshot(weather.Snapshot) {}
func (Discard) PublishStatus(weather.Status)     {}
