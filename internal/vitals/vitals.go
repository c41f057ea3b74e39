package vitals

import (
	"fmt"
	"sort"
	"time"
)

// Plausible ranges for camera-derived readings. Values outside them are
// rejected at the store boundary rather than silently skewing a baseline.
const (
	MinHeartRate     = 30
	MaxHeartRate     = 220
	MinBreathingRate = 5
	MaxBreathingRate = 40
)

// Sample is one day's vital-sign measurement produced by a completed scan.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	HeartRate     int       `json:"heartRate"`
	BreathingRate int       `json:"breathingRate"`
	SleepHours    *float64  `json:"sleepHours,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Sleep returns the recorded sleep duration and whether one was captured.
func (s Sample) Sleep() (float64, bool) {
	if s.SleepHours == nil {
		return 0, false
	}
	return *s.SleepHours, true
}

// Day returns the calendar day the sample belongs to.
func (s Sample) Day() time.Time {
	return Day(s.Timestamp)
}

// RangeError reports a reading outside its plausible range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	if e.Max <= e.Min {
		return fmt.Sprintf("%s %.1f must be >= %.1f", e.Field, e.Value, e.Min)
	}
	return fmt.Sprintf("%s %.1f outside plausible range %.0f-%.0f", e.Field, e.Value, e.Min, e.Max)
}

// Validate checks the sample against the plausible reading ranges.
func (s Sample) Validate() error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("sample timestamp is required")
	}
	if s.HeartRate < MinHeartRate || s.HeartRate > MaxHeartRate {
		return &RangeError{Field: "heart rate", Value: float64(s.HeartRate), Min: MinHeartRate, Max: MaxHeartRate}
	}
	if s.BreathingRate < MinBreathingRate || s.BreathingRate > MaxBreathingRate {
		return &RangeError{Field: "breathing rate", Value: float64(s.BreathingRate), Min: MinBreathingRate, Max: MaxBreathingRate}
	}
	if hours, ok := s.Sleep(); ok && hours < 0 {
		return &RangeError{Field: "sleep hours", Value: hours}
	}
	return nil
}

// Metric selects which reading of a sample a computation looks at.
type Metric int

const (
	HeartRate Metric = iota
	BreathingRate
)

// Value extracts the metric's reading from a sample.
func (m Metric) Value(s Sample) float64 {
	if m == BreathingRate {
		return float64(s.BreathingRate)
	}
	return float64(s.HeartRate)
}

// Unit is the short display unit for the metric.
func (m Metric) Unit() string {
	if m == BreathingRate {
		return "rpm"
	}
	return "bpm"
}

func (m Metric) String() string {
	if m == BreathingRate {
		return "breathing rate"
	}
	return "heart rate"
}

// Day truncates t to the start of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b.In(a.Location())))
}

// Authoritative keeps the most recent sample for each calendar day and
// returns them ordered oldest first. The input is not modified.
func Authoritative(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}
	latest := make(map[time.Time]Sample, len(samples))
	for _, s := range samples {
		key := s.Day()
		if cur, ok := latest[key]; ok && !s.Timestamp.After(cur.Timestamp) {
			continue
		}
		latest[key] = s
	}
	out := make([]Sample, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// HistoryBefore returns up to limit authoritative samples from days strictly
// before day, oldest first. A limit <= 0 keeps the whole history.
func HistoryBefore(samples []Sample, day time.Time, limit int) []Sample {
	start := Day(day)
	var prior []Sample
	for _, s := range Authoritative(samples) {
		if s.Day().Before(start) {
			prior = append(prior, s)
		}
	}
	if limit > 0 && len(prior) > limit {
		prior = prior[len(prior)-limit:]
	}
	return prior
}

// LatestOn returns the authoritative sample recorded on day.
func LatestOn(samples []Sample, day time.Time) (Sample, bool) {
	var (
		found Sample
		ok    bool
	)
	for _, s := range samples {
		if !SameDay(day, s.Timestamp) {
			continue
		}
		if !ok || s.Timestamp.After(found.Timestamp) {
			found = s
			ok = true
		}
	}
	return found, ok
}

// Values projects the metric over samples in order.
func Values(samples []Sample, metric Metric) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = metric.Value(s)
	}
	return values
}

// Hours is a convenience for building optional sleep values.
func Hours(h float64) *float64 {
	return &h
}
