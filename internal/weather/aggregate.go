package weather

import (
	"sort"
	"time"
)

// MaxDailySummaries caps the number of daily summaries derived from a forecast.
const MaxDailySummaries = 5

// representativeHour is the local hour preferred as a day's sample.
const representativeHour = 12

// Aggregate derives the hourly series and the per-day summaries from a
// forecast. Points are ordered by time first so the result does not depend
// on input order. The input slice is left untouched.
func Aggregate(points []ForecastPoint) ([]Point, []DailySummary) {
	sorted := make([]ForecastPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	hourly := make([]Point, 0, min(len(sorted), HourlyLimit))
	for _, fp := range sorted {
		if len(hourly) == HourlyLimit {
			break
		}
		hourly = append(hourly, PointFrom(fp.Observation))
	}

	return hourly, summarizeDays(sorted)
}

// summarizeDays groups time-ordered points by the calendar date of their own
// location and summarizes the first MaxDailySummaries dates.
func summarizeDays(sorted []ForecastPoint) []DailySummary {
	type dayKey string

	var (
		keys   []dayKey
		groups = make(map[dayKey][]ForecastPoint)
	)
	for _, fp := range sorted {
		k := dayKey(fp.Time.Format(time.DateOnly))
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], fp)
	}

	// Keys are already ascending for time-ordered input, except across
	// mixed offsets; sorting keeps the date order strict.
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	daily := make([]DailySummary, 0, min(len(keys), MaxDailySummaries))
	for _, k := range keys {
		if len(daily) == MaxDailySummaries {
			break
		}
		daily = append(daily, summarizeDay(string(k), groups[k]))
	}
	return daily
}

func summarizeDay(date string, group []ForecastPoint) DailySummary {
	rep := group[0]
	for _, fp := range group {
		if fp.Time.Hour() == representativeHour {
			rep = fp
			break
		}
	}

	high, low := group[0].TempMax, group[0].TempMin
	for _, fp := range group[1:] {
		high = max(high, fp.TempMax)
		low = min(low, fp.TempMin)
	}
	if high < low {
		high, low = low, high
	}

	return DailySummary{
		Date:           date,
		High:           high,
		Low:            low,
		Representative: rep,
		Humidity:       rep.Humidity,
		WindSpeed:      rep.WindSpeed,
		Description:    rep.Description,
	}
}
