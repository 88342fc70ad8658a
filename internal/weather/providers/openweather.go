package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// DefaultReadTimeout bounds each upstream read.
const DefaultReadTimeout = 10 * time.Second

// OpenWeather implements weather.Fetcher against OpenWeatherMap's current
// weather and 5 day / 3 hour forecast endpoints. It never retries.
type OpenWeather struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	clock   clockwork.Clock
}

// NewOpenWeather creates the client. An empty baseURL selects the public API;
// a nil clock selects the real one.
func NewOpenWeather(client *http.Client, apiKey, baseURL string, readTimeout time.Duration, clock clockwork.Clock) *OpenWeather {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client:      client,
			ReadTimeout: readTimeout,
		},
		circuit: newCircuitBreaker("openweather"),
		clock:   clock,
	}
}

// Fetch reads current conditions, then the forecast. The forecast read is
// only attempted once the current read succeeded.
func (p *OpenWeather) Fetch(ctx context.Context, query string) (weather.Observation, []weather.ForecastPoint, error) {
	q, err := weather.NormalizeQuery(query)
	if err != nil {
		return weather.Observation{}, nil, err
	}

	// Entries without a timestamp are stamped with the fetch start.
	fetched := p.clock.Now()

	obs, err := p.fetchCurrent(ctx, q, fetched)
	if err != nil {
		return weather.Observation{}, nil, err
	}

	points, err := p.fetchForecast(ctx, q, fetched)
	if err != nil {
		return weather.Observation{}, nil, err
	}

	return obs, points, nil
}

func (p *OpenWeather) fetchCurrent(ctx context.Context, q string, fetched time.Time) (weather.Observation, error) {
	res, err := doRead(ctx, p.httpCfg, p.circuit, p.requestBuilder("weather", q))
	if err != nil {
		return weather.Observation{}, &weather.FetchError{Kind: transportKind(err), Query: q, Op: "current", Err: err}
	}
	if !isSuccess(res.status) {
		kind := weather.ErrNotFound
		if res.status == http.StatusUnauthorized {
			kind = weather.ErrUnauthorized
		}
		return weather.Observation{}, &weather.FetchError{Kind: kind, Query: q, Op: "current", Status: res.status}
	}

	var payload owmCurrent
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return weather.Observation{}, &weather.FetchError{
			Kind: weather.ErrNetwork, Query: q, Op: "current", Status: res.status,
			Err: fmt.Errorf("decode current conditions: %w", err),
		}
	}

	zone := time.FixedZone("", payload.Timezone)
	return payload.owmEntry.toObservation(zone, fetched, payload.Name, payload.Sys.Country), nil
}

func (p *OpenWeather) fetchForecast(ctx context.Context, q string, fetched time.Time) ([]weather.ForecastPoint, error) {
	partial := func(status int, cause error) error {
		return &weather.FetchError{Kind: weather.ErrPartialUpstream, Query: q, Op: "forecast", Status: status, Err: cause}
	}

	res, err := doRead(ctx, p.httpCfg, p.circuit, p.requestBuilder("forecast", q))
	if err != nil {
		return nil, partial(0, fmt.Errorf("%w: %w", transportKind(err), err))
	}
	if !isSuccess(res.status) {
		return nil, partial(res.status, nil)
	}

	var payload owmForecast
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return nil, partial(res.status, fmt.Errorf("decode forecast: %w", err))
	}

	zone := time.FixedZone("", payload.City.Timezone)
	points := make([]weather.ForecastPoint, 0, len(payload.List))
	for _, item := range payload.List {
		points = append(points, weather.ForecastPoint{
			Observation: item.toObservation(zone, fetched, payload.City.Name, payload.City.Country),
		})
	}
	return points, nil
}

func (p *OpenWeather) requestBuilder(endpoint, q string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", q)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
}

// OpenWeatherMap payloads, reduced to the fields the pipeline needs.

type owmEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []owmCondition `json:"weather"`
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmCurrent struct {
	owmEntry
	Name     string `json:"name"`
	Timezone int    `json:"timezone"` // seconds east of UTC
	Sys      struct {
		Country string `json:"country"`
	} `json:"sys"`
}

type owmForecast struct {
	List []owmEntry `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

func (e owmEntry) toObservation(zone *time.Location, fallback time.Time, name, country string) weather.Observation {
	ts := time.Unix(e.Dt, 0).In(zone)
	if e.Dt == 0 {
		ts = fallback.In(zone)
	}

	var desc string
	if len(e.Weather) > 0 {
		desc = e.Weather[0].Description
	}

	return weather.Observation{
		Time:          ts,
		Location:      name,
		Country:       country,
		Temperature:   e.Main.Temp,
		FeelsLike:     e.Main.FeelsLike,
		TempMin:       e.Main.TempMin,
		TempMax:       e.Main.TempMax,
		Humidity:      clamp(e.Main.Humidity, 0, 100),
		Pressure:      e.Main.Pressure,
		WindSpeed:     max(e.Wind.Speed, 0),
		WindDirection: e.Wind.Deg,
		Description:   desc,
		Condition:     mapOpenWeatherCondition(e.Weather),
	}
}

func mapOpenWeatherCondition(items []owmCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	}
	// Atmosphere group: Mist, Smoke, Haze, Dust, Fog, Sand, Ash, Squall, Tornado.
	if common.HasAny(strings.ToLower(items[0].Main), "mist", "fog", "haze", "smoke") {
		return weather.ConditionMist
	}
	return weather.ConditionUnknown
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
