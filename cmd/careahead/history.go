package main

import (
	"context"
	"fmt"
	"time"

	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/vitals"
)

const dayLayout = "2006-01-02"

func engine() baseline.Engine {
	return baseline.New(cfg.Baseline)
}

func loadHistory(ctx context.Context) ([]vitals.Sample, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.History(ctx)
}

// resolveDay turns a --date value into the day to evaluate; empty means
// today.
func resolveDay(value string) (time.Time, error) {
	if value == "" {
		return now(), nil
	}
	day, err := time.ParseInLocation(dayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", value)
	}
	// noon keeps the day stable whatever the offset
	return day.Add(12 * time.Hour), nil
}

// scanFor returns the history and the authoritative sample of day, failing
// when nothing was recorded that day.
func scanFor(ctx context.Context, day time.Time) ([]vitals.Sample, vitals.Sample, error) {
	samples, err := loadHistory(ctx)
	if err != nil {
		return nil, vitals.Sample{}, err
	}
	today, ok := vitals.LatestOn(samples, day)
	if !ok {
		return nil, vitals.Sample{}, fmt.Errorf("no scan recorded on %s; add one with `careahead add`", day.Format(dayLayout))
	}
	return samples, today, nil
}
