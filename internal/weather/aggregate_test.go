package weather

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeHourly builds n forecast points every 3 hours from start, the way the
// upstream five-day forecast is laid out.
func threeHourly(start time.Time, n int) []ForecastPoint {
	points := make([]ForecastPoint, n)
	for i := range n {
		temp := 10 + float64(i%8)
		points[i] = ForecastPoint{Observation: Observation{
			Time:        start.Add(time.Duration(3*i) * time.Hour),
			Temperature: temp,
			TempMin:     temp - 1,
			TempMax:     temp + 1,
			Humidity:    60,
			WindSpeed:   3,
			Description: "scattered clouds",
			Condition:   ConditionCloudy,
		}}
	}
	return points
}

func TestAggregateFiveDayForecast(t *testing.T) {
	points := threeHourly(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 40)

	hourly, daily := Aggregate(points)

	require.Len(t, hourly, HourlyLimit)
	assert.Equal(t, points[0].Time, hourly[0].Time)
	assert.Equal(t, points[23].Time, hourly[23].Time)

	require.Len(t, daily, 5)
	assert.Equal(t, "2024-03-10", daily[0].Date)
	assert.Equal(t, "2024-03-14", daily[4].Date)
	for _, d := range daily {
		assert.GreaterOrEqual(t, d.High, d.Low)
		assert.Equal(t, 12, d.Representative.Time.Hour(), "midday point is preferred")
		assert.Equal(t, 9.0, d.Low)
		assert.Equal(t, 18.0, d.High)
	}
}

func TestAggregateCapsDailySummaries(t *testing.T) {
	// Starting at 21:00 spreads 40 points over six dates.
	points := threeHourly(time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC), 40)

	_, daily := Aggregate(points)

	require.Len(t, daily, MaxDailySummaries)
	for i := 1; i < len(daily); i++ {
		assert.Less(t, daily[i-1].Date, daily[i].Date, "dates are strictly ascending")
	}
	assert.Equal(t, "2024-03-10", daily[0].Date)
	assert.Equal(t, 21, daily[0].Representative.Time.Hour(), "first point is used when no midday point exists")
}

func TestAggregateIgnoresInputOrder(t *testing.T) {
	points := threeHourly(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 40)
	wantHourly, wantDaily := Aggregate(points)

	shuffled := make([]ForecastPoint, len(points))
	copy(shuffled, points)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	gotHourly, gotDaily := Aggregate(shuffled)
	assert.Equal(t, wantHourly, gotHourly)
	assert.Equal(t, wantDaily, gotDaily)
}

func TestAggregateUsesLocalDates(t *testing.T) {
	tokyo := time.FixedZone("", 9*3600)
	points := []ForecastPoint{
		{Observation: Observation{Time: time.Date(2024, 3, 10, 23, 0, 0, 0, tokyo), TempMin: 1, TempMax: 2}},
		{Observation: Observation{Time: time.Date(2024, 3, 11, 2, 0, 0, 0, tokyo), TempMin: 3, TempMax: 4}},
	}

	_, daily := Aggregate(points)

	require.Len(t, daily, 2)
	assert.Equal(t, "2024-03-10", daily[0].Date)
	assert.Equal(t, "2024-03-11", daily[1].Date)
}

func TestAggregateSwapsInvertedRange(t *testing.T) {
	points := []ForecastPoint{
		{Observation: Observation{Time: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), TempMin: 15, TempMax: 5}},
	}

	_, daily := Aggregate(points)

	require.Len(t, daily, 1)
	assert.Equal(t, 15.0, daily[0].High)
	assert.Equal(t, 5.0, daily[0].Low)
}

func TestAggregateEmpty(t *testing.T) {
	hourly, daily := Aggregate(nil)
	assert.Empty(t, hourly)
	assert.Empty(t, daily)
}

func TestAggregateLeavesInputUntouched(t *testing.T) {
	points := threeHourly(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 3)
	points[0], points[2] = points[2], points[0]
	first := points[0].Time

	Aggregate(points)

	assert.Equal(t, first, points[0].Time)
}
