package weather

import (
	"errors"
	"fmt"
)

// Fetch error kinds. Match them with errors.Is.
var (
	ErrInvalidQuery    = errors.New("invalid query")
	ErrTimeout         = errors.New("upstream timeout")
	ErrNotFound        = errors.New("location not found")
	ErrUnauthorized    = errors.New("api key invalid or missing")
	ErrNetwork         = errors.New("network error")
	ErrPartialUpstream = errors.New("forecast unavailable after current conditions succeeded")
)

var kinds = []error{
	ErrInvalidQuery,
	ErrTimeout,
	ErrNotFound,
	ErrUnauthorized,
	ErrNetwork,
	ErrPartialUpstream,
}

// FetchError is the single typed failure returned by a Fetcher.
type FetchError struct {
	Kind   error  // one of the Err* kinds above
	Query  string // normalized query, empty for ErrInvalidQuery
	Op     string // "validate", "current" or "forecast"
	Status int    // upstream HTTP status, 0 when no response was received
	Err    error  // underlying cause, may be nil
}

func (e *FetchError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Query != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Query)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns a short label for err's kind, suitable for metrics and
// status messages. Errors outside the taxonomy report "unknown".
func KindOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind != nil {
		return kindLabel(fe.Kind)
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return kindLabel(k)
		}
	}
	return "unknown"
}

func kindLabel(kind error) string {
	switch kind {
	case ErrInvalidQuery:
		return "invalid_query"
	case ErrTimeout:
		return "timeout"
	case ErrNotFound:
		return "not_found"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNetwork:
		return "network"
	case ErrPartialUpstream:
		return "partial_upstream"
	default:
		return "unknown"
	}
}

// StatusMessage renders err the way the dashboard status line shows it.
func StatusMessage(query string, err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return "Please enter a city name"
	case errors.Is(err, ErrPartialUpstream):
		return "Error fetching forecast data"
	case errors.Is(err, ErrUnauthorized):
		return "API key invalid or missing"
	case errors.Is(err, ErrNotFound):
		return "City not found: " + query
	case errors.Is(err, ErrTimeout):
		return "Timed out fetching weather data for " + query
	case errors.Is(err, ErrNetwork):
		return "Network error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
