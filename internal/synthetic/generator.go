// Package synthetic produces the live telemetry series: one derived point per
// tick, following the latest real observation with a smooth periodic swing
// and a little bounded noise.
package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultTickInterval is how often a synthetic point is produced.
const DefaultTickInterval = 1 * time.Second

// Baselines used until a real observation is available.
const (
	DefaultTemperature = 20.0
	DefaultHumidity    = 50.0
)

// Perturbation shape. Temperature and humidity use independent sinusoids so
// the two series do not move in lockstep.
const (
	tempAmplitude     = 2.0
	tempFrequency     = 0.1 // rad/s
	tempNoiseSigma    = 0.5
	humidityAmplitude = 5.0
	humidityFrequency = 0.15 // rad/s
	humidityNoiseSig  = 1.0

	// Gaussian noise is clipped to this many standard deviations.
	noiseClip = 3.0
)

// Generator owns the synthetic window. It is not safe for concurrent use;
// the pipeline calls it from its owner loop only.
type Generator struct {
	rnd    *rand.Rand
	window *weather.Window
}

// New creates a generator drawing noise from rnd. Pass a seeded source for
// reproducible output; nil seeds from the current time.
func New(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		rnd:    rnd,
		window: weather.NewWindow(weather.SyntheticLimit),
	}
}

// Tick appends one point for now and returns the updated series.
func (g *Generator) Tick(now time.Time, baseline *weather.Observation) []weather.Point {
	baseTemp, baseHumidity := DefaultTemperature, DefaultHumidity
	if baseline != nil {
		baseTemp, baseHumidity = baseline.Temperature, baseline.Humidity
	}

	t := float64(now.UnixNano()) / float64(time.Second)

	temp := baseTemp +
		math.Sin(t*tempFrequency)*tempAmplitude +
		g.noise(tempNoiseSigma)
	humidity := baseHumidity +
		math.Cos(t*humidityFrequency)*humidityAmplitude +
		g.noise(humidityNoiseSig)

	g.window.Append(weather.Point{
		Time:        now,
		Temperature: temp,
		Humidity:    min(max(humidity, 0), 100),
	})
	return g.window.Points()
}

func (g *Generator) noise(sigma float64) float64 {
	n := g.rnd.NormFloat64()
	n = min(max(n, -noiseClip), noiseClip)
	return n * sigma
}
