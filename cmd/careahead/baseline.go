package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/guide"
)

var (
	baselineDate string
	baselineJSON bool
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Show today's readings against your baseline",
	Long: `Computes the rolling personal baseline for heart rate and breathing rate
from the days before the selected one, classifies the day's readings and
prints the 0-100 risk score.`,
	Args: cobra.NoArgs,
	RunE: runBaseline,
}

func init() {
	baselineCmd.Flags().StringVar(&baselineDate, "date", "", "day to evaluate (YYYY-MM-DD, default today)")
	baselineCmd.Flags().BoolVar(&baselineJSON, "json", false, "output the assessment as JSON")
	rootCmd.AddCommand(baselineCmd)
}

type assessmentOutput struct {
	Day       string       `json:"day"`
	HasToday  bool         `json:"hasToday"`
	HeartRate metricOutput `json:"heartRate"`
	Breathing metricOutput `json:"breathingRate"`
	Risk      *int         `json:"risk,omitempty"`
	History   int          `json:"historyDays"`
	Quality   string       `json:"quality"`
	Steps     []guide.Step `json:"nextScan,omitempty"`
}

type metricOutput struct {
	Value     *float64        `json:"value,omitempty"`
	Baseline  *baseline.Stats `json:"baseline,omitempty"`
	Stability string          `json:"stability"`
}

func newAssessmentOutput(a baseline.Assessment, steps []guide.Step) assessmentOutput {
	out := assessmentOutput{
		Day:       a.Day.Format(dayLayout),
		HasToday:  a.HasToday,
		HeartRate: newMetricOutput(a.HeartRate),
		Breathing: newMetricOutput(a.Breathing),
		History:   a.HistoryCount,
		Quality:   guide.Quality(a),
		Steps:     steps,
	}
	if a.HasRisk {
		risk := a.Risk
		out.Risk = &risk
	}
	return out
}

func newMetricOutput(m baseline.MetricAssessment) metricOutput {
	out := metricOutput{Stability: m.Stability.String()}
	if m.HasValue {
		v := m.Value
		out.Value = &v
	}
	if m.HasBaseline {
		s := m.Stats
		out.Baseline = &s
	}
	return out
}

func runBaseline(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(baselineDate)
	if err != nil {
		return err
	}
	samples, err := loadHistory(cmd.Context())
	if err != nil {
		return err
	}

	eng := engine()
	a := eng.Assess(samples, day)
	steps := guide.Build(a, eng.Config().MinPercentileSamples)
	out := newAssessmentOutput(a, steps)

	if baselineJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal assessment: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Day:            %s (%d days of history)\n", out.Day, out.History)
	if !a.HasToday {
		cmd.Println("Today:          no scan recorded")
	} else if h, ok := a.Today.Sleep(); ok {
		cmd.Printf("Today:          HR %d bpm, BR %d rpm, sleep %.1f h\n", a.Today.HeartRate, a.Today.BreathingRate, h)
	} else {
		cmd.Printf("Today:          HR %d bpm, BR %d rpm, sleep not logged\n", a.Today.HeartRate, a.Today.BreathingRate)
	}
	printMetric(cmd, "Heart rate:", a.HeartRate)
	printMetric(cmd, "Breathing rate:", a.Breathing)
	switch {
	case a.HasRisk:
		cmd.Printf("Risk:           %d/100\n", a.Risk)
	case !a.HasToday:
		cmd.Println("Risk:           no scan today")
	default:
		cmd.Println("Risk:           no baseline yet")
	}
	cmd.Printf("Data quality:   %s\n", out.Quality)
	return nil
}

func printMetric(cmd *cobra.Command, label string, m baseline.MetricAssessment) {
	if !m.HasBaseline {
		cmd.Printf("%-15s no baseline yet\n", label)
		return
	}
	line := fmt.Sprintf("%-15s avg %.1f %s, band %.1f-%.1f", label, m.Stats.Average, m.Metric.Unit(), m.Stats.Low, m.Stats.High)
	if m.HasValue {
		line += ", " + m.Stability.String()
	}
	cmd.Println(line)
}
