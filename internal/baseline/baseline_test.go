package baseline

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careahead/vitalscope/internal/vitals"
)

func day(n int) time.Time {
	return time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func heartRates(values ...int) []vitals.Sample {
	samples := make([]vitals.Sample, len(values))
	for i, v := range values {
		samples[i] = vitals.Sample{Timestamp: day(i), HeartRate: v, BreathingRate: 15}
	}
	return samples
}

func TestComputeEmptyHistoryHasNoBaseline(t *testing.T) {
	_, ok := Compute(nil, vitals.HeartRate)
	assert.False(t, ok)
}

func TestComputeSingleSample(t *testing.T) {
	stats, ok := Compute(heartRates(64), vitals.HeartRate)
	require.True(t, ok)
	assert.Equal(t, 64.0, stats.Average)
	assert.Zero(t, stats.StdDev)
	assert.Equal(t, 64.0, stats.Low)
	assert.Equal(t, 64.0, stats.High)
}

func TestComputeSmallHistoryUsesMinMax(t *testing.T) {
	stats, ok := Compute(heartRates(70, 60, 90, 75), vitals.HeartRate)
	require.True(t, ok)
	assert.Equal(t, 60.0, stats.Low)
	assert.Equal(t, 90.0, stats.High)
	assert.InDelta(t, 73.75, stats.Average, 1e-9)
	// sample variance: (3.75^2 + 13.75^2 + 16.25^2 + 1.25^2) / 3
	assert.InDelta(t, 12.5, stats.StdDev, 1e-9)
}

func TestComputeCountsOneSamplePerDay(t *testing.T) {
	history := heartRates(60, 70)
	retake := history[1]
	retake.Timestamp = retake.Timestamp.Add(-2 * time.Hour)
	retake.HeartRate = 120
	history = append(history, retake)

	stats, ok := Compute(history, vitals.HeartRate)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 65.0, stats.Average, 1e-9)
}

func TestComputeUsesInterpolatedPercentiles(t *testing.T) {
	// Twelve evenly spaced readings from 60 to 100.
	values := make([]float64, 12)
	for i := range values {
		values[i] = 60 + float64(i)*40/11
	}
	assert.InDelta(t, 66.0, Percentile(values, 0.15), 1e-9)
	assert.InDelta(t, 94.0, Percentile(values, 0.85), 1e-9)

	ints := heartRates(60, 64, 67, 71, 75, 78, 82, 85, 89, 93, 96, 100)
	got, ok := Compute(ints, vitals.HeartRate)
	require.True(t, ok)
	assert.InDelta(t, 64+0.65*(67-64), got.Low, 1e-9)
	assert.InDelta(t, 93+0.35*(96-93), got.High, 1e-9)
	assert.Greater(t, got.Low, 60.0, "band should not collapse to min/max")
	assert.Less(t, got.High, 100.0)
}

func TestPercentileEdges(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 4.0, Percentile(sorted, 1))
	assert.InDelta(t, 2.5, Percentile(sorted, 0.5), 1e-9)
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestBandContainsAverageOnSkewedHistory(t *testing.T) {
	stats, ok := Compute(heartRates(60, 60, 60, 60, 60, 60, 60, 60, 60, 220), vitals.HeartRate)
	require.True(t, ok)
	assert.LessOrEqual(t, stats.Low, stats.Average)
	assert.GreaterOrEqual(t, stats.High, stats.Average)
}

func TestBaselineProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		n := rng.Intn(40)
		values := make([]int, n)
		for i := range values {
			values[i] = 30 + rng.Intn(191)
		}
		stats, ok := Compute(heartRates(values...), vitals.HeartRate)
		if n == 0 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.LessOrEqual(t, stats.Low, stats.Average+1e-9, "trial %d", trial)
		assert.GreaterOrEqual(t, stats.High, stats.Average-1e-9, "trial %d", trial)
		assert.GreaterOrEqual(t, stats.StdDev, 0.0)
		if n < 2 {
			assert.Zero(t, stats.StdDev)
		}
		if n < 10 {
			sorted := append([]int(nil), values...)
			sort.Ints(sorted)
			assert.Equal(t, float64(sorted[0]), stats.Low)
			assert.Equal(t, float64(sorted[n-1]), stats.High)
		}
	}
}

func TestPenaltyInBandIsConstant(t *testing.T) {
	for _, v := range []float64{65, 66, 72.5, 79.9, 80} {
		assert.Equal(t, 6.0, Penalty(v, 65, 80, 8), "value %v", v)
	}
}

func TestPenaltyOutsideBand(t *testing.T) {
	assert.InDelta(t, 65.625, Penalty(95, 65, 80, 8), 1e-9)
	assert.InDelta(t, 65.625, Penalty(50, 65, 80, 8), 1e-9)
	assert.Equal(t, 99.0, Penalty(200, 65, 80, 8))
	// scale below one is treated as one
	assert.InDelta(t, 35.0, Penalty(81, 65, 80, 0.2), 1e-9)
}

func TestRiskScoreWorkedExample(t *testing.T) {
	today := vitals.Sample{Timestamp: day(30), HeartRate: 95, BreathingRate: 15}
	hr := Stats{Average: 72, Low: 65, High: 80, StdDev: 8, Count: 30}
	br := Stats{Average: 15, Low: 12, High: 18, StdDev: 1, Count: 30}

	score, ok := RiskScore(&today, &hr, &br)
	require.True(t, ok)
	assert.Equal(t, 43, score)
}

func TestRiskScoreMissingInputs(t *testing.T) {
	today := vitals.Sample{HeartRate: 70, BreathingRate: 15}
	stats := Stats{Average: 70, Low: 60, High: 80}
	_, ok := RiskScore(nil, &stats, &stats)
	assert.False(t, ok)
	_, ok = RiskScore(&today, nil, &stats)
	assert.False(t, ok)
	_, ok = RiskScore(&today, &stats, nil)
	assert.False(t, ok)
}

func TestRiskScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		today := vitals.Sample{HeartRate: 30 + rng.Intn(191), BreathingRate: 5 + rng.Intn(36)}
		hr := Stats{Low: 50 + rng.Float64()*30, StdDev: rng.Float64() * 20}
		hr.High = hr.Low + rng.Float64()*30
		br := Stats{Low: 10 + rng.Float64()*5, StdDev: rng.Float64() * 4}
		br.High = br.Low + rng.Float64()*6
		score, ok := RiskScore(&today, &hr, &br)
		require.True(t, ok)
		assert.GreaterOrEqual(t, score, 1)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestRiskScoreInBandIsSmallPositive(t *testing.T) {
	today := vitals.Sample{HeartRate: 70, BreathingRate: 15}
	hr := Stats{Low: 60, High: 80, StdDev: 5}
	br := Stats{Low: 12, High: 18, StdDev: 1}
	score, ok := RiskScore(&today, &hr, &br)
	require.True(t, ok)
	assert.Equal(t, 7, score)
}

func TestClassify(t *testing.T) {
	e := Default()
	tight := Stats{Low: 60, High: 80, StdDev: 4}
	loose := Stats{Low: 60, High: 80, StdDev: 12}

	assert.Equal(t, Stable, e.Classify(70, &tight, vitals.HeartRate))
	assert.Equal(t, WithinRange, e.Classify(70, &loose, vitals.HeartRate))
	assert.Equal(t, OutOfRange, e.Classify(95, &tight, vitals.HeartRate))
	assert.Equal(t, StabilityUnknown, e.Classify(70, nil, vitals.HeartRate))

	// Breathing uses a tighter threshold than heart rate.
	br := Stats{Low: 12, High: 18, StdDev: 3}
	assert.Equal(t, WithinRange, e.Classify(15, &br, vitals.BreathingRate))
	assert.Equal(t, Stable, e.Classify(15, &br, vitals.HeartRate))
}

func TestConfigOverridesWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartRateWeight = 1
	cfg.BreathingWeight = 0
	e := New(cfg)

	today := vitals.Sample{HeartRate: 95, BreathingRate: 30}
	hr := Stats{Low: 65, High: 80, StdDev: 8}
	br := Stats{Low: 12, High: 18, StdDev: 1}
	score, ok := e.RiskScore(&today, &hr, &br)
	require.True(t, ok)
	assert.Equal(t, 1+66, score)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.LowPercentile = 0.9
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Window = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.HeartRateWeight, cfg.BreathingWeight = 0, 0
	assert.Error(t, cfg.Validate())
}
