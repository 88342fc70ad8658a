package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot is recorded for a query.
	ErrNotFound = errors.New("no weather data for location")
)

// SnapshotHistory holds a time-ordered list of merged snapshots for a query.
type SnapshotHistory struct {
	Snapshots []weather.Snapshot
}

// MemoryStore is a concurrency-safe in-memory history of merged snapshots.
// It records one entry per merge revision and ignores synthetic ticks.
type MemoryStore struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	// key: normalized query, value: history
	data         map[string]*SnapshotHistory
	lastRevision uint64

	// retention configuration
	maxHistory int           // max number of snapshots per query
	maxAge     time.Duration // optional max age for snapshots
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:      clock,
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

func key(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// PublishSnapshot records snapshot if it carries a revision not seen yet.
func (s *MemoryStore) PublishSnapshot(snapshot weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Revision == 0 || snapshot.Revision == s.lastRevision {
		return
	}
	s.lastRevision = snapshot.Revision
	s.save(snapshot)
}

func (s *MemoryStore) PublishStatus(weather.Status) {}

// save appends a snapshot and enforces retention. Callers hold mu.
func (s *MemoryStore) save(snapshot weather.Snapshot) {
	k := key(snapshot.Query)

	history, ok := s.data[k]
	if !ok {
		history = &SnapshotHistory{}
		s.data[k] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age; the newest entry is always kept.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots)-1; i++ {
			if !history.Snapshots[i].UpdatedAt.Before(cutoff) {
				break
			}
		}
		history.Snapshots = history.Snapshots[i:]
	}
}

// GetLatest returns the most recent merged snapshot for a query.
func (s *MemoryStore) GetLatest(query string) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key(query)]
	if !ok || len(history.Snapshots) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for a query merged between from and to (inclusive).
func (s *MemoryStore) GetRange(query string, from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key(query)]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Snapshot
	for _, snap := range history.Snapshots {
		if !snap.UpdatedAt.Before(from) && !snap.UpdatedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
