package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/report"
	"github.com/careahead/vitalscope/internal/reveal"
	"github.com/careahead/vitalscope/internal/vitals"
)

// HistorySource supplies every recorded sample.
type HistorySource interface {
	History(ctx context.Context) ([]vitals.Sample, error)
}

type historyLoadedMsg struct {
	samples  []vitals.Sample
	archived *archive.Entry
	err      error
}

type archiveSavedMsg struct {
	day string
	err error
}

type workbookExportedMsg struct {
	path     string
	days     int
	insights int
	err      error
}

type revealStateMsg struct {
	state  reveal.State
	closed bool
}

func loadHistoryJob(source HistorySource, archivePath string, day time.Time) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if source == nil {
			err := errors.New("no sample store configured")
			return historyLoadedMsg{err: err}, err
		}
		ctx, cancel := context.WithTimeout(parent, 10*time.Second)
		defer cancel()
		samples, err := source.History(ctx)
		if err != nil {
			return historyLoadedMsg{err: err}, err
		}
		msg := historyLoadedMsg{samples: samples}
		if archivePath != "" {
			// a broken archive should not hide the vitals
			if entry, ok, err := archive.Find(archivePath, day); err == nil && ok {
				msg.archived = &entry
			}
		}
		return msg, nil
	}
}

func saveInsightJob(path string, day time.Time, prompt string, res insight.Result, provider string, risk *int) jobRunner {
	entry := archive.NewEntry(day, prompt, res, provider)
	entry.Risk = risk
	return func(parent context.Context) (tea.Msg, error) {
		if err := archive.Save(path, entry); err != nil {
			return archiveSavedMsg{day: entry.Day, err: err}, err
		}
		return archiveSavedMsg{day: entry.Day}, nil
	}
}

func exportWorkbookJob(path, archivePath string, engine baseline.Engine, samples []vitals.Sample) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		points := engine.Timeline(samples)
		var entries []archive.Entry
		if archivePath != "" {
			var err error
			if entries, err = archive.Load(archivePath); err != nil {
				return workbookExportedMsg{path: path, err: err}, err
			}
		}
		if err := report.SaveFile(path, points, entries); err != nil {
			return workbookExportedMsg{path: path, err: err}, err
		}
		return workbookExportedMsg{path: path, days: len(points), insights: len(entries)}, nil
	}
}

// waitForState blocks on the controller stream and hands the next state to
// the update loop.
func waitForState(states <-chan reveal.State) tea.Cmd {
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-states
		return revealStateMsg{state: st, closed: !ok}
	}
}
