package weather

import "sort"

const (
	// HourlyLimit bounds the hourly-derived series.
	HourlyLimit = 24
	// SyntheticLimit bounds the synthetic telemetry series.
	SyntheticLimit = 50
)

// Window is a bounded, time-ascending series of points. Appending past the
// limit evicts the oldest points first. A Window is not safe for concurrent
// use; the pipeline owns it.
type Window struct {
	limit  int
	points []Point
}

// NewWindow creates an empty window holding at most limit points.
// A limit <= 0 is treated as 1.
func NewWindow(limit int) *Window {
	if limit <= 0 {
		limit = 1
	}
	return &Window{
		limit:  limit,
		points: make([]Point, 0, limit),
	}
}

// Append inserts p keeping the series ordered by time, then trims the
// oldest points beyond the limit.
func (w *Window) Append(p Point) {
	n := len(w.points)
	if n == 0 || !p.Time.Before(w.points[n-1].Time) {
		w.points = append(w.points, p)
	} else {
		// Insert after any point with an equal timestamp.
		i := sort.Search(n, func(i int) bool { return w.points[i].Time.After(p.Time) })
		w.points = append(w.points, Point{})
		copy(w.points[i+1:], w.points[i:])
		w.points[i] = p
	}

	if over := len(w.points) - w.limit; over > 0 {
		w.points = append(w.points[:0], w.points[over:]...)
	}
}

// Points returns a copy of the series.
func (w *Window) Points() []Point {
	out := make([]Point, len(w.points))
	copy(out, w.points)
	return out
}

// Len reports how many points the window holds.
func (w *Window) Len() int { return len(w.points) }
