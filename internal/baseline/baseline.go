// Package baseline turns a user's own vital-sign history into an adaptive
// normal band, a stability classification and a bounded 1-100 risk score.
//
// Every function here is total: missing data is reported through an ok flag
// so callers can render "no baseline yet" instead of a misleading zero.
package baseline

import (
	"math"
	"sort"

	"github.com/careahead/vitalscope/internal/vitals"
)

// Stats summarizes one metric over a history window.
type Stats struct {
	Average float64 `json:"average"`
	Low     float64 `json:"lowBand"`
	High    float64 `json:"highBand"`
	StdDev  float64 `json:"stdDev"`
	Count   int     `json:"count"`
}

// Contains reports whether value lies inside the normal band.
func (s Stats) Contains(value float64) bool {
	return value >= s.Low && value <= s.High
}

// Stability classifies a reading against its baseline.
type Stability int

const (
	StabilityUnknown Stability = iota
	Stable
	WithinRange
	OutOfRange
)

func (s Stability) String() string {
	switch s {
	case Stable:
		return "stable"
	case WithinRange:
		return "within range"
	case OutOfRange:
		return "out of range"
	default:
		return "no data"
	}
}

// Engine evaluates histories with a fixed calibration.
type Engine struct {
	cfg Config
}

// New returns an engine using cfg.
func New(cfg Config) Engine {
	return Engine{cfg: cfg}
}

// Default returns an engine using DefaultConfig.
func Default() Engine {
	return New(DefaultConfig())
}

// Config exposes the engine calibration.
func (e Engine) Config() Config {
	return e.cfg
}

// Compute derives the baseline of metric over history. Only the latest
// sample of each day counts. ok is false when the history is empty.
func (e Engine) Compute(history []vitals.Sample, metric vitals.Metric) (Stats, bool) {
	values := vitals.Values(vitals.Authoritative(history), metric)
	if len(values) == 0 {
		return Stats{}, false
	}
	avg := mean(values)
	stats := Stats{
		Average: avg,
		StdDev:  sampleStdDev(values, avg),
		Count:   len(values),
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) >= e.cfg.MinPercentileSamples {
		stats.Low = Percentile(sorted, e.cfg.LowPercentile)
		stats.High = Percentile(sorted, e.cfg.HighPercentile)
	} else {
		stats.Low = sorted[0]
		stats.High = sorted[len(sorted)-1]
	}
	// A heavily skewed window can push the mean outside the percentile band.
	stats.Low = math.Min(stats.Low, avg)
	stats.High = math.Max(stats.High, avg)
	return stats, true
}

// Compute derives a baseline with the default calibration.
func Compute(history []vitals.Sample, metric vitals.Metric) (Stats, bool) {
	return Default().Compute(history, metric)
}

// Percentile interpolates linearly between the order statistics of sorted
// at rank (n-1)*p. sorted must be ascending and non-empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := float64(len(sorted)-1) * p
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Penalty scores how far value sits outside [low, high]. Anything inside the
// band gets the constant in-band penalty so a score is never exactly zero.
func (e Engine) Penalty(value, low, high, scale float64) float64 {
	divisor := math.Max(1, scale)
	var penalty float64
	switch {
	case value < low:
		penalty = (low - value) / divisor * e.cfg.PenaltySlope
	case value > high:
		penalty = (value - high) / divisor * e.cfg.PenaltySlope
	default:
		return e.cfg.InBandPenalty
	}
	return math.Max(0, math.Min(e.cfg.MaxPenalty, penalty))
}

// Penalty scores a deviation with the default calibration.
func Penalty(value, low, high, scale float64) float64 {
	return Default().Penalty(value, low, high, scale)
}

// Scale is the divisor used for metric's penalty: the baseline spread,
// floored so a very uniform history does not blow the penalty up.
func (e Engine) Scale(stats Stats, metric vitals.Metric) float64 {
	return math.Max(e.cfg.scaleFloor(metric), stats.StdDev)
}

// MetricPenalty scores today's reading of metric against its baseline.
func (e Engine) MetricPenalty(today vitals.Sample, stats Stats, metric vitals.Metric) float64 {
	return e.Penalty(metric.Value(today), stats.Low, stats.High, e.Scale(stats, metric))
}

// RiskScore combines the weighted heart-rate and breathing penalties into a
// 1-100 score. ok is false when today's sample or either baseline is missing.
func (e Engine) RiskScore(today *vitals.Sample, hr, br *Stats) (int, bool) {
	if today == nil || hr == nil || br == nil {
		return 0, false
	}
	hrPenalty := e.MetricPenalty(*today, *hr, vitals.HeartRate)
	brPenalty := e.MetricPenalty(*today, *br, vitals.BreathingRate)
	weighted := e.cfg.HeartRateWeight*hrPenalty + e.cfg.BreathingWeight*brPenalty
	score := 1 + int(math.Round(weighted))
	return clamp(score, 1, 100), true
}

// RiskScore scores today with the default calibration.
func RiskScore(today *vitals.Sample, hr, br *Stats) (int, bool) {
	return Default().RiskScore(today, hr, br)
}

// Classify labels value against stats. A nil baseline yields StabilityUnknown.
func (e Engine) Classify(value float64, stats *Stats, metric vitals.Metric) Stability {
	if stats == nil {
		return StabilityUnknown
	}
	if !stats.Contains(value) {
		return OutOfRange
	}
	if stats.StdDev <= e.cfg.stableStdDev(metric) {
		return Stable
	}
	return WithinRange
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64, avg float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - avg
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
