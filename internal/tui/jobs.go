package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindLoad   jobKind = "load"
	jobKindSave   jobKind = "save"
	jobKindExport jobKind = "export"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
}

func (s jobSnapshot) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs disk work (history load, archive save, workbook export) off
// the update loop. Each job announces itself, runs, then delivers its
// payload wrapped with the final snapshot.
type jobBus struct {
	ctx    context.Context
	logger *zap.Logger
}

func newJobBus(ctx context.Context, logger *zap.Logger) *jobBus {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobBus{ctx: ctx, logger: logger.Named("jobs")}
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	running := jobSnapshot{
		ID:        string(kind) + "-" + uuid.NewString()[:8],
		Kind:      kind,
		Status:    jobStatusRunning,
		StartedAt: time.Now(),
	}
	announce := func() tea.Msg {
		return jobSignalMsg{Snapshot: running}
	}
	run := func() tea.Msg {
		payload, err := runner(b.ctx)
		done := running
		done.CompletedAt = time.Now()
		done.Status = jobStatusSucceeded
		if err != nil {
			done.Status = jobStatusFailed
			done.Err = err.Error()
		}
		b.logger.Info("job finished",
			zap.String("job_id", done.ID),
			zap.String("kind", string(kind)),
			zap.String("status", string(done.Status)),
			zap.Duration("duration", done.Duration()),
			zap.Error(err),
		)
		return jobResultEnvelope{Snapshot: done, Payload: payload}
	}
	return tea.Sequence(announce, run)
}
