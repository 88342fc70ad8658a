package weather

import (
	"context"
	"strings"
)

// Fetcher abstracts the upstream weather source. Fetch returns both the
// current observation and the forecast, or a *FetchError; never one without
// the other.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (Observation, []ForecastPoint, error)
}

// NormalizeQuery trims a location query and rejects empty input.
func NormalizeQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &FetchError{Kind: ErrInvalidQuery, Op: "validate"}
	}
	return q, nil
}
