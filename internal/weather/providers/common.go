package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client *http.Client
	// ReadTimeout bounds each individual upstream read.
	ReadTimeout time.Duration
}

var (
	errServerError  = errors.New("server error")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// newCircuitBreaker builds the breaker shared by a provider's reads. Only
// transport failures and 5xx responses count against it; a 401 or 404 is a
// valid answer from a healthy upstream.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// readResult is a fully read upstream response.
type readResult struct {
	status int
	body   []byte
}

// doRead executes one bounded upstream read through the circuit breaker.
// The returned error is already classified into the weather taxonomy except
// for the HTTP status, which callers classify per read.
func doRead(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (readResult, error) {
	if cfg.Client == nil {
		return readResult{}, errNoHTTPClient
	}

	if cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ReadTimeout)
		defer cancel()
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return readResult{}, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		res := readResult{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return res, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		return res, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return readResult{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if errors.Is(err, errServerError) {
		// The status is still meaningful to the caller.
		res, _ := result.(readResult)
		return res, nil
	}
	if err != nil {
		return readResult{}, err
	}

	res, ok := result.(readResult)
	if !ok {
		return readResult{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return res, nil
}

// transportKind maps a failed round trip onto the error taxonomy.
func transportKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return weather.ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return weather.ErrTimeout
	}
	return weather.ErrNetwork
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
