// Package guide turns a day's assessment into a short checklist for the
// next scan.
package guide

import (
	"fmt"

	"github.com/careahead/vitalscope/internal/baseline"
)

// Step represents one actionable recommendation for the next scan.
type Step struct {
	Title       string
	Description string
}

// Build returns a next-scan checklist tailored to the day's assessment.
// percentileDays is how many history days the baseline needs before its band
// switches from min/max to percentiles.
func Build(a baseline.Assessment, percentileDays int) []Step {
	steps := []Step{
		{
			Title:       "Even lighting",
			Description: "Face a window or lamp so your face is evenly lit. Avoid strong light behind you; camera estimates drift when the face is in shadow.",
		},
		{
			Title:       "Hold still",
			Description: "Sit down, rest for a minute and keep your head still during the scan. Talking and movement both disturb the reading.",
		},
		timeOfDay(a),
		{
			Title:       "Skip caffeine beforehand",
			Description: "Coffee, tea and energy drinks can lift heart rate for a few hours. Scan before them or well after.",
		},
	}

	if !a.HeartRate.HasBaseline || !a.Breathing.HasBaseline {
		steps = append(steps, Step{
			Title:       "Build your baseline",
			Description: "There is no baseline yet. A few days of scans are enough to start comparing today against your own normal range.",
		})
	} else if remaining := percentileDays - a.HistoryCount; remaining > 0 {
		steps = append(steps, Step{
			Title:       "Keep scanning daily",
			Description: fmt.Sprintf("%d more %s of scans will tighten your normal range so single unusual days stand out less.", remaining, plural(remaining, "day", "days")),
		})
	}

	if a.HasToday {
		steps = append(steps, watch(a.HeartRate)...)
		steps = append(steps, watch(a.Breathing)...)
		if _, ok := a.Today.Sleep(); !ok {
			steps = append(steps, Step{
				Title:       "Log your sleep",
				Description: "No sleep was recorded today. Adding it helps explain changes in resting heart and breathing rate.",
			})
		}
	}
	return steps
}

func timeOfDay(a baseline.Assessment) Step {
	step := Step{Title: "Same time of day"}
	if a.HasToday {
		step.Description = fmt.Sprintf("You scanned at %s today. Scanning around then tomorrow keeps readings comparable.", a.Today.Timestamp.Format("15:04"))
	} else {
		step.Description = "Pick a regular time, for example right after waking, and scan then each day so readings stay comparable."
	}
	return step
}

// watch adds a re-check step for a metric that left its band.
func watch(m baseline.MetricAssessment) []Step {
	if m.Stability != baseline.OutOfRange {
		return nil
	}
	unit := m.Metric.Unit()
	if m.Value > m.Stats.High {
		return []Step{{
			Title: fmt.Sprintf("Watch your %s", m.Metric),
			Description: fmt.Sprintf("Today's %.0f %s was above your usual %.0f-%.0f %s. Note recent exercise, stress, caffeine or a short night and scan again tomorrow once rested.",
				m.Value, unit, m.Stats.Low, m.Stats.High, unit),
		}}
	}
	return []Step{{
		Title: fmt.Sprintf("Watch your %s", m.Metric),
		Description: fmt.Sprintf("Today's %.0f %s was below your usual %.0f-%.0f %s. Deep rest can do this; check that you stayed still and well lit and scan again tomorrow.",
			m.Value, unit, m.Stats.Low, m.Stats.High, unit),
	}}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Quality summarizes how far the day's data can be trusted, in the
// low/medium/high terms the insight prompt asks the model for.
func Quality(a baseline.Assessment) string {
	switch {
	case !a.HasToday:
		return "no scan today"
	case !a.HeartRate.HasBaseline:
		return "low: no baseline yet"
	case a.HistoryCount < 7:
		return fmt.Sprintf("low: %d days of history", a.HistoryCount)
	case a.HeartRate.Stability == baseline.OutOfRange || a.Breathing.Stability == baseline.OutOfRange:
		return "medium: a reading is outside your usual range"
	default:
		return "high: readings match your baseline"
	}
}
