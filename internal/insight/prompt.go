// Package insight builds LLM prompts from vital-sign history and turns the
// model's free-form replies into display-ready sections.
package insight

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/careahead/vitalscope/internal/vitals"
)

// HistoryLimit caps how many prior days a prompt lists.
const HistoryLimit = 30

const dateLayout = "2006-01-02"

// Format selects the output shape requested from the model.
type Format int

const (
	// FormatJSON asks for the five-key object understood by Parse.
	FormatJSON Format = iota
	// FormatPlain asks for markdown-free prose split with ParagraphsOf.
	FormatPlain
)

func (f Format) String() string {
	if f == FormatPlain {
		return "plain"
	}
	return "json"
}

// ParseFormat maps "json" or "plain" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "plain", "text":
		return FormatPlain, nil
	default:
		return FormatJSON, fmt.Errorf("unknown prompt format %q", s)
	}
}

// Summary holds the descriptive statistics quoted in a prompt. It is
// computed from the listed history only.
type Summary struct {
	Days             int
	AvgHeartRate     float64
	AvgBreathingRate float64
	MinHeartRate     int
	MaxHeartRate     int
	MinBreathingRate int
	MaxBreathingRate int
	HasSleep         bool
	AvgSleep         float64
	MinSleep         float64
	MaxSleep         float64
}

// Summarize computes the prompt summary. Without history the ranges
// collapse onto today's reading and the averages are zero.
func Summarize(today vitals.Sample, history []vitals.Sample) Summary {
	s := Summary{
		Days:             len(history),
		MinHeartRate:     today.HeartRate,
		MaxHeartRate:     today.HeartRate,
		MinBreathingRate: today.BreathingRate,
		MaxBreathingRate: today.BreathingRate,
	}
	if len(history) == 0 {
		return s
	}
	s.MinHeartRate, s.MaxHeartRate = history[0].HeartRate, history[0].HeartRate
	s.MinBreathingRate, s.MaxBreathingRate = history[0].BreathingRate, history[0].BreathingRate
	var hrSum, brSum, sleepSum float64
	sleepCount := 0
	for _, v := range history {
		hrSum += float64(v.HeartRate)
		brSum += float64(v.BreathingRate)
		s.MinHeartRate = min(s.MinHeartRate, v.HeartRate)
		s.MaxHeartRate = max(s.MaxHeartRate, v.HeartRate)
		s.MinBreathingRate = min(s.MinBreathingRate, v.BreathingRate)
		s.MaxBreathingRate = max(s.MaxBreathingRate, v.BreathingRate)
		hours, ok := v.Sleep()
		if !ok {
			continue
		}
		if sleepCount == 0 {
			s.MinSleep, s.MaxSleep = hours, hours
		}
		sleepSum += hours
		sleepCount++
		s.MinSleep = min(s.MinSleep, hours)
		s.MaxSleep = max(s.MaxSleep, hours)
	}
	s.AvgHeartRate = hrSum / float64(len(history))
	s.AvgBreathingRate = brSum / float64(len(history))
	if sleepCount > 0 {
		s.HasSleep = true
		s.AvgSleep = sleepSum / float64(sleepCount)
	}
	return s
}

// promptHistory returns the authoritative history before today, capped to
// the most recent HistoryLimit days.
func promptHistory(today vitals.Sample, history []vitals.Sample) []vitals.Sample {
	return vitals.HistoryBefore(history, today.Timestamp, HistoryLimit)
}

// BuildPrompt renders the insight request for today's reading. The output
// depends only on its inputs.
func BuildPrompt(today vitals.Sample, history []vitals.Sample, format Format) string {
	recent := promptHistory(today, history)
	summary := Summarize(today, recent)

	var b strings.Builder
	b.WriteString("You are an assistant for a health-tracking app. Provide supportive, non-alarmist insights.\n")
	b.WriteString("Do NOT give medical diagnoses. Do NOT claim certainty. Include a brief disclaimer: 'Not medical advice.'\n")
	b.WriteString("Compare today's reading with this person's own recent baseline, not with population norms.\n\n")

	fmt.Fprintf(&b, "Today (%s):\n", today.Timestamp.Format(dateLayout))
	fmt.Fprintf(&b, "- Heart rate: %d bpm\n", today.HeartRate)
	fmt.Fprintf(&b, "- Breathing rate: %d rpm\n", today.BreathingRate)
	if hours, ok := today.Sleep(); ok {
		fmt.Fprintf(&b, "- Sleep: %.1f hours\n", hours)
	} else {
		b.WriteString("- Sleep: (no data)\n")
	}

	fmt.Fprintf(&b, "\nHistory summary (last %d days):\n", summary.Days)
	fmt.Fprintf(&b, "- Avg heart rate: %.1f bpm\n", summary.AvgHeartRate)
	fmt.Fprintf(&b, "- Avg breathing rate: %.1f rpm\n", summary.AvgBreathingRate)
	fmt.Fprintf(&b, "- Heart rate range: %d-%d bpm\n", summary.MinHeartRate, summary.MaxHeartRate)
	fmt.Fprintf(&b, "- Breathing rate range: %d-%d rpm\n", summary.MinBreathingRate, summary.MaxBreathingRate)
	if summary.HasSleep {
		fmt.Fprintf(&b, "- Avg sleep: %.1f hours\n", summary.AvgSleep)
		fmt.Fprintf(&b, "- Sleep range: %.1f-%.1f hours\n", summary.MinSleep, summary.MaxSleep)
	}

	b.WriteString("\nDaily history:\n")
	if len(recent) == 0 {
		b.WriteString("- (no previous days recorded)\n")
	}
	for _, v := range recent {
		b.WriteString(historyLine(v))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	if format == FormatPlain {
		b.WriteString(plainInstructions)
	} else {
		b.WriteString(jsonInstructions)
	}
	return b.String()
}

func historyLine(v vitals.Sample) string {
	line := fmt.Sprintf("- %s: HR %d bpm, BR %d rpm", v.Timestamp.Format(dateLayout), v.HeartRate, v.BreathingRate)
	if hours, ok := v.Sleep(); ok {
		line += fmt.Sprintf(", Sleep %.1f h", hours)
	}
	return line
}

const jsonInstructions = `Output format:
Return ONLY a JSON object with exactly these keys:
{"introduction":[""],"heartRateDiscussion":[""],"breathingRateDiscussion":[""],"finalThoughts":[""],"disclaimer":""}
- introduction: a short narrative of today's heart rate, breathing rate and sleep together.
- heartRateDiscussion: today's heart rate against the average and range above, trend over the listed days, benign causes of variation.
- breathingRateDiscussion: the same for breathing rate.
- finalThoughts: 3-5 gentle, practical suggestions and what to watch tomorrow.
- disclaimer: one sentence ending with 'Not medical advice.'
Each narrative key holds a list of paragraphs. Do not use markdown inside the strings.
`

const plainInstructions = `Output format:
Write plain prose with no markdown, no headings and no bullet lists.
Write four parts in this order, separated by a blank line: an introduction, a heart rate discussion, a breathing rate discussion and final thoughts.
End with: 'Not medical advice.'
`

// BuildTrendPrompt asks for one short paragraph describing a single
// metric's recent trend.
func BuildTrendPrompt(metric vitals.Metric, history []vitals.Sample) string {
	days := vitals.Authoritative(history)
	if len(days) > HistoryLimit {
		days = days[len(days)-HistoryLimit:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant for a health-tracking app. In one short paragraph of 3-4 sentences, describe the trend of this person's resting %s over the last %d days.\n", metric, len(days))
	b.WriteString("Mention direction (up, down or stable) and variability. Be supportive and non-alarmist. Do NOT diagnose.\n")
	b.WriteString("Plain text only, no markdown. End with: 'Not medical advice.'\n\n")
	fmt.Fprintf(&b, "Daily %s (%s):\n", metric, metric.Unit())
	if len(days) == 0 {
		b.WriteString("- (no readings recorded)\n")
	}
	for _, v := range days {
		fmt.Fprintf(&b, "- %s: %.0f\n", v.Timestamp.Format(dateLayout), metric.Value(v))
	}
	return b.String()
}

// Fingerprint identifies a prompt so an archived insight generated from the
// byte-identical prompt can be reused.
func Fingerprint(prompt string) uint64 {
	return xxh3.HashString(prompt)
}
