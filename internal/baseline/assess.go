package baseline

import (
	"time"

	"github.com/careahead/vitalscope/internal/vitals"
)

// MetricAssessment is today's reading of one metric next to its baseline.
type MetricAssessment struct {
	Metric      vitals.Metric
	Value       float64
	HasValue    bool
	Stats       Stats
	HasBaseline bool
	Stability   Stability
	Penalty     float64
}

// Assessment bundles everything the dashboard shows for one day.
type Assessment struct {
	Day          time.Time
	Today        vitals.Sample
	HasToday     bool
	HeartRate    MetricAssessment
	Breathing    MetricAssessment
	Risk         int
	HasRisk      bool
	HistoryCount int
}

// Assess evaluates the authoritative sample of day against the trailing
// window of history before it.
func (e Engine) Assess(samples []vitals.Sample, day time.Time) Assessment {
	history := vitals.HistoryBefore(samples, day, e.cfg.Window)
	today, hasToday := vitals.LatestOn(samples, day)
	return e.assess(vitals.Day(day), history, today, hasToday)
}

func (e Engine) assess(day time.Time, history []vitals.Sample, today vitals.Sample, hasToday bool) Assessment {
	a := Assessment{
		Day:          day,
		Today:        today,
		HasToday:     hasToday,
		HistoryCount: len(history),
	}
	a.HeartRate = e.assessMetric(history, today, hasToday, vitals.HeartRate)
	a.Breathing = e.assessMetric(history, today, hasToday, vitals.BreathingRate)

	var todayPtr *vitals.Sample
	if hasToday {
		todayPtr = &today
	}
	a.Risk, a.HasRisk = e.RiskScore(todayPtr, statsPtr(a.HeartRate), statsPtr(a.Breathing))
	return a
}

func (e Engine) assessMetric(history []vitals.Sample, today vitals.Sample, hasToday bool, metric vitals.Metric) MetricAssessment {
	m := MetricAssessment{Metric: metric, HasValue: hasToday}
	m.Stats, m.HasBaseline = e.Compute(history, metric)
	if !hasToday {
		return m
	}
	m.Value = metric.Value(today)
	m.Stability = e.Classify(m.Value, statsPtr(m), metric)
	if m.HasBaseline {
		m.Penalty = e.MetricPenalty(today, m.Stats, metric)
	}
	return m
}

func statsPtr(m MetricAssessment) *Stats {
	if !m.HasBaseline {
		return nil
	}
	s := m.Stats
	return &s
}

// Point is one day of the rolling baseline timeline.
type Point struct {
	Day       time.Time
	Sample    vitals.Sample
	HeartRate MetricAssessment
	Breathing MetricAssessment
	Risk      int
	HasRisk   bool
}

// Timeline replays every authoritative day against the window that preceded
// it, oldest first.
func (e Engine) Timeline(samples []vitals.Sample) []Point {
	days := vitals.Authoritative(samples)
	points := make([]Point, 0, len(days))
	for i, s := range days {
		start := i - e.cfg.Window
		if start < 0 {
			start = 0
		}
		a := e.assess(s.Day(), days[start:i], s, true)
		points = append(points, Point{
			Day:       a.Day,
			Sample:    s,
			HeartRate: a.HeartRate,
			Breathing: a.Breathing,
			Risk:      a.Risk,
			HasRisk:   a.HasRisk,
		})
	}
	return points
}
