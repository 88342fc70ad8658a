package pipeline

import "github.com/i474232898/weather-dashboard/internal/weather"

// event is a unit of work for the owner loop. apply runs on the loop only.
type event interface {
	apply(p *Pipeline)
}

type mergeEvent struct {
	query  string
	obs    weather.Observation
	points []weather.ForecastPoint
	reply  chan<- weather.Snapshot
}

func (e mergeEvent) apply(p *Pipeline) {
	now := p.clock.Now()
	p.current = weather.Merge(p.current, e.query, e.obs, e.points, now)
	p.publish(p.current)
	p.ready.Store(true)
	p.metrics.Merges.Inc()

	p.publishStatus(weather.Status{
		Level:   weather.StatusInfo,
		Message: "Weather data updated for " + e.query,
		Time:    now,
	})
	p.logger.Info("snapshot merged",
		"query", e.query,
		"revision", p.current.Revision,
		"hourly", len(p.current.Hourly),
		"daily", len(p.current.Daily),
	)

	if e.reply != nil {
		e.reply <- p.current
	}
}

type tickEvent struct{}

func (tickEvent) apply(p *Pipeline) {
	now := p.clock.Now()
	series := p.gen.Tick(now, p.current.Latest)
	p.current = p.current.WithSynthetic(series, now)
	p.publish(p.current)
	p.metrics.SyntheticTicks.Inc()
}

type statusEvent struct {
	status weather.Status
}

func (e statusEvent) apply(p *Pipeline) {
	p.publishStatus(e.status)
}
