package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeReplacesLatestAndKeepsSynthetic(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	prev := Snapshot{
		Query:     "Paris",
		Latest:    &Observation{Location: "Paris", Temperature: 9},
		Synthetic: []Point{{Time: now.Add(-time.Second), Temperature: 20.5}},
		Revision:  3,
	}
	obs := Observation{Time: now, Location: "London", Country: "GB", Temperature: 12.3}

	next := Merge(prev, "London", obs, threeHourly(now, 40), now)

	require.NotNil(t, next.Latest)
	assert.Equal(t, "London", next.Latest.Location)
	assert.Equal(t, 12.3, next.Latest.Temperature)
	assert.Equal(t, "London", next.Query)
	assert.Equal(t, uint64(4), next.Revision)
	assert.Equal(t, now, next.UpdatedAt)
	assert.Len(t, next.Hourly, HourlyLimit)
	assert.Len(t, next.Daily, 5)
	assert.Equal(t, prev.Synthetic, next.Synthetic)

	// The synthetic series must not alias the previous snapshot.
	next.Synthetic[0].Temperature = 0
	assert.Equal(t, 20.5, prev.Synthetic[0].Temperature)
}

func TestMergeLastFetchWins(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	prev := Snapshot{Latest: &Observation{Time: now, Temperature: 15}, Revision: 1}
	older := Observation{Time: now.Add(-time.Hour), Temperature: 11}

	next := Merge(prev, "London", older, nil, now)

	require.NotNil(t, next.Latest)
	assert.Equal(t, 11.0, next.Latest.Temperature)
}

func TestWithSyntheticKeepsRevision(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{Query: "London", Revision: 2}
	series := []Point{{Time: now, Temperature: 21}}

	next := snap.WithSynthetic(series, now)

	assert.Equal(t, uint64(2), next.Revision)
	assert.Equal(t, now, next.UpdatedAt)
	require.Len(t, next.Synthetic, 1)

	series[0].Temperature = 0
	assert.Equal(t, 21.0, next.Synthetic[0].Temperature)
	assert.Empty(t, snap.Synthetic)
}

func TestPointFromMissingWindDirection(t *testing.T) {
	assert.Equal(t, 0.0, PointFrom(Observation{}).WindDirection)

	deg := 270.0
	assert.Equal(t, 270.0, PointFrom(Observation{WindDirection: &deg}).WindDirection)
}
