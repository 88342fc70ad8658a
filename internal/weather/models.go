package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Observation is a point-in-time record of conditions at a location.
// Values are immutable once fetched.
type Observation struct {
	Time     time.Time `json:"time"`
	Location string    `json:"location,omitempty"`
	Country  string    `json:"country,omitempty"`

	Temperature float64 `json:"temperatureC"`
	FeelsLike   float64 `json:"feelsLikeC"`
	TempMin     float64 `json:"tempMinC"`
	TempMax     float64 `json:"tempMaxC"`
	Humidity    float64 `json:"humidityPercent"` // 0-100
	Pressure    float64 `json:"pressureHpa"`
	WindSpeed   float64 `json:"windSpeed"` // m/s, >= 0

	// WindDirection is in degrees (0-360); nil when the provider omits it.
	WindDirection *float64 `json:"windDirection,omitempty"`

	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
}

// ForecastPoint is an Observation for a future instant. TempMin and TempMax
// cover the forecast interval the point represents.
type ForecastPoint struct {
	Observation
}

// Point is a single element of a time series.
type Point struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperatureC"`
	Humidity      float64   `json:"humidityPercent"`
	Pressure      float64   `json:"pressureHpa,omitempty"`
	WindSpeed     float64   `json:"windSpeed,omitempty"`
	WindDirection float64   `json:"windDirection,omitempty"`
}

// PointFrom maps an observation onto a series point. A missing wind
// direction is plotted as 0.
func PointFrom(o Observation) Point {
	p := Point{
		Time:        o.Time,
		Temperature: o.Temperature,
		Humidity:    o.Humidity,
		Pressure:    o.Pressure,
		WindSpeed:   o.WindSpeed,
	}
	if o.WindDirection != nil {
		p.WindDirection = *o.WindDirection
	}
	return p
}

// DailySummary condenses the forecast points of one calendar date.
type DailySummary struct {
	Date           string        `json:"date"` // YYYY-MM-DD in the location's zone
	High           float64       `json:"highC"`
	Low            float64       `json:"lowC"`
	Representative ForecastPoint `json:"representative"`
	Humidity       float64       `json:"humidityPercent"`
	WindSpeed      float64       `json:"windSpeed"`
	Description    string        `json:"description"`
}

// Snapshot is the immutable bundle handed to output sinks. None of its
// slices are shared with pipeline state.
type Snapshot struct {
	Query     string         `json:"query"`
	Latest    *Observation   `json:"latest,omitempty"`
	Daily     []DailySummary `json:"daily"`
	Hourly    []Point        `json:"hourly"`
	Synthetic []Point        `json:"synthetic"`

	// Revision counts successful merges; ticks leave it unchanged.
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusLevel classifies a status message.
type StatusLevel string

const (
	StatusInfo  StatusLevel = "info"
	StatusError StatusLevel = "error"
)

// Status is a human readable progress or failure message for the dashboard.
type Status struct {
	Level   StatusLevel `json:"level"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Time    time.Time   `json:"time"`
}
