// Package archive keeps generated insights in a small JSON file so a day's
// narrative can be reopened without another LLM call.
package archive

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/vitals"
)

const dayLayout = "2006-01-02"

// Entry is one archived daily insight.
type Entry struct {
	EntryType   string           `json:"entryType"`
	Day         string           `json:"day"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Provider    string           `json:"provider,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	Tier        string           `json:"tier,omitempty"`
	Risk        *int             `json:"risk,omitempty"`
	Sections    insight.Sections `json:"sections"`
}

// Trend is one archived single-metric trend paragraph.
type Trend struct {
	EntryType   string    `json:"entryType"`
	Day         string    `json:"day"`
	Metric      string    `json:"metric"`
	GeneratedAt time.Time `json:"generatedAt"`
	Fingerprint string    `json:"fingerprint"`
	Paragraph   string    `json:"paragraph"`
}

// DayKey formats the calendar day of t the way entries are keyed.
func DayKey(t time.Time) string {
	return vitals.Day(t).Format(dayLayout)
}

// FingerprintKey renders an insight.Fingerprint for storage.
func FingerprintKey(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

// NewEntry builds an entry for the insight generated on day from prompt.
func NewEntry(day time.Time, prompt string, res insight.Result, provider string) Entry {
	return Entry{
		EntryType:   entryTypeInsight,
		Day:         DayKey(day),
		GeneratedAt: time.Now(),
		Provider:    provider,
		Fingerprint: FingerprintKey(insight.Fingerprint(prompt)),
		Tier:        res.Tier.String(),
		Sections:    res.Sections,
	}
}

// Save stores entry, replacing any insight already archived for its day.
func Save(path string, entry Entry) error {
	if entry.Day == "" {
		return fmt.Errorf("archive entry needs a day")
	}
	entry.EntryType = entryTypeInsight
	if entry.GeneratedAt.IsZero() {
		entry.GeneratedAt = time.Now()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return upsert(path, raw, func(header entryHeader) bool {
		return header.EntryType == entryTypeInsight && header.Day == entry.Day
	})
}

// Load returns every archived insight, oldest day first. A missing file is
// an empty archive.
func Load(path string) ([]Entry, error) {
	var out []Entry
	err := each(path, entryTypeInsight, func(raw json.RawMessage) error {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// Find returns the insight archived for day.
func Find(path string, day time.Time) (Entry, bool, error) {
	entries, err := Load(path)
	if err != nil {
		return Entry{}, false, err
	}
	key := DayKey(day)
	for _, e := range entries {
		if e.Day == key {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Reusable returns the archived insight for day if it was generated from a
// byte-identical prompt.
func Reusable(path string, day time.Time, prompt string) (Entry, bool, error) {
	e, ok, err := Find(path, day)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if e.Fingerprint != FingerprintKey(insight.Fingerprint(prompt)) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// SaveTrend stores a trend paragraph, replacing the one for the same day
// and metric.
func SaveTrend(path string, trend Trend) error {
	if trend.Day == "" || trend.Metric == "" {
		return fmt.Errorf("trend entry needs a day and a metric")
	}
	trend.EntryType = entryTypeTrend
	if trend.GeneratedAt.IsZero() {
		trend.GeneratedAt = time.Now()
	}
	raw, err := json.Marshal(trend)
	if err != nil {
		return err
	}
	return upsert(path, raw, func(header entryHeader) bool {
		return header.EntryType == entryTypeTrend && header.Day == trend.Day && header.Metric == trend.Metric
	})
}

// LoadTrends returns every archived trend paragraph in file order.
func LoadTrends(path string) ([]Trend, error) {
	var out []Trend
	err := each(path, entryTypeTrend, func(raw json.RawMessage) error {
		var tr Trend
		if err := json.Unmarshal(raw, &tr); err != nil {
			return err
		}
		out = append(out, tr)
		return nil
	})
	return out, err
}
