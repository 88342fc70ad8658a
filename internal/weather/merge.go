package weather

import "time"

// Merge builds the snapshot that follows a successful fetch. The latest
// observation is replaced unconditionally, even when it is older than the
// previous one: last fetch wins. Hourly and daily views are recomputed from
// the full forecast; the synthetic series is carried over from prev.
func Merge(prev Snapshot, query string, obs Observation, points []ForecastPoint, now time.Time) Snapshot {
	hourly, daily := Aggregate(points)

	latest := obs
	return Snapshot{
		Query:     query,
		Latest:    &latest,
		Daily:     daily,
		Hourly:    hourly,
		Synthetic: clonePoints(prev.Synthetic),
		Revision:  prev.Revision + 1,
		UpdatedAt: now,
	}
}

// WithSynthetic returns a copy of s carrying a new synthetic series.
func (s Snapshot) WithSynthetic(series []Point, now time.Time) Snapshot {
	next := s
	next.Synthetic = clonePoints(series)
	next.UpdatedAt = now
	return next
}

func clonePoints(in []Point) []Point {
	out := make([]Point, len(in))
	copy(out, in)
	return out
}
