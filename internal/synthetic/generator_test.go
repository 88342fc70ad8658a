package synthetic

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var start = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestTickCapsSeries(t *testing.T) {
	g := New(rand.New(rand.NewSource(1)))

	var series []weather.Point
	for i := range 60 {
		series = g.Tick(start.Add(time.Duration(i)*time.Second), nil)
	}

	require.Len(t, series, weather.SyntheticLimit)
	assert.Equal(t, start.Add(10*time.Second), series[0].Time)
	assert.Equal(t, start.Add(59*time.Second), series[len(series)-1].Time)
}

func TestTickStaysNearBaseline(t *testing.T) {
	g := New(rand.New(rand.NewSource(2)))
	baseline := &weather.Observation{Temperature: 12.3, Humidity: 81}

	for i := range 500 {
		series := g.Tick(start.Add(time.Duration(i)*time.Second), baseline)
		p := series[len(series)-1]

		// amplitude plus clipped noise
		assert.InDelta(t, 12.3, p.Temperature, tempAmplitude+noiseClip*tempNoiseSigma)
		assert.InDelta(t, 81, p.Humidity, humidityAmplitude+noiseClip*humidityNoiseSig)
	}
}

func TestTickDefaultBaseline(t *testing.T) {
	g := New(rand.New(rand.NewSource(3)))

	series := g.Tick(start, nil)

	require.Len(t, series, 1)
	assert.InDelta(t, DefaultTemperature, series[0].Temperature, tempAmplitude+noiseClip*tempNoiseSigma)
	assert.InDelta(t, DefaultHumidity, series[0].Humidity, humidityAmplitude+noiseClip*humidityNoiseSig)
}

func TestTickClampsHumidity(t *testing.T) {
	g := New(rand.New(rand.NewSource(4)))

	for i := range 100 {
		now := start.Add(time.Duration(i) * time.Second)
		wet := g.Tick(now, &weather.Observation{Humidity: 100})
		assert.LessOrEqual(t, wet[len(wet)-1].Humidity, 100.0)

		dry := g.Tick(now, &weather.Observation{Humidity: 0})
		assert.GreaterOrEqual(t, dry[len(dry)-1].Humidity, 0.0)
	}
}

func TestTickSeededIsDeterministic(t *testing.T) {
	a := New(rand.New(rand.NewSource(42)))
	b := New(rand.New(rand.NewSource(42)))
	baseline := &weather.Observation{Temperature: 5, Humidity: 40}

	for i := range 10 {
		now := start.Add(time.Duration(i) * time.Second)
		assert.Equal(t, a.Tick(now, baseline), b.Tick(now, baseline))
	}
}

func TestNoiseIsClipped(t *testing.T) {
	g := New(rand.New(rand.NewSource(5)))
	for range 10000 {
		n := g.noise(1)
		assert.LessOrEqual(t, n, noiseClip)
		assert.GreaterOrEqual(t, n, -noiseClip)
	}
}
