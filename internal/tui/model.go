package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/guide"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/reveal"
	"github.com/careahead/vitalscope/internal/vitals"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Context context.Context
	History HistorySource
	// Controller is nil when no AI provider could be set up; Unavailable
	// then explains why.
	Controller  *reveal.Controller
	Unavailable string
	Provider    string
	Format      insight.Format
	Engine      baseline.Engine
	ArchivePath string
	ExportPath  string
	Logger      *zap.Logger
	Now         func() time.Time
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Engine == (baseline.Engine{}) {
		config.Engine = baseline.Default()
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		stage:         stageLoading,
		jobs:          newJobBus(config.Context, config.Logger),
		spinner:       spin,
		viewport:      vp,
		layout:        newPageLayout(),
		activeJobs:    map[string]jobSnapshot{},
		viewportDirty: true,
		infoMessage:   "Loading your history…",
	}
	if config.Controller != nil {
		m.states, m.unsubscribe = config.Controller.Subscribe()
	}
	return m
}

type model struct {
	config Config
	stage  stage
	jobs   *jobBus

	spinner  spinner.Model
	viewport viewport.Model
	layout   pageLayout

	samples    []vitals.Sample
	today      vitals.Sample
	hasToday   bool
	assessment baseline.Assessment
	steps      []guide.Step
	archived   *archive.Entry
	savedDay   string

	states      <-chan reveal.State
	unsubscribe func()
	reveal      reveal.State

	activeJobs    map[string]jobSnapshot
	lastJob       *jobSnapshot
	viewportDirty bool
	infoMessage   string
	errorMessage  string
	helpVisible   bool
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.jobs.Start(jobKindLoad, loadHistoryJob(m.config.History, m.config.ArchivePath, m.config.Now())),
		waitForState(m.states),
	)
}

func (m *model) busy() bool {
	return m.stage != stageDisplay || m.reveal.Phase == reveal.Busy || m.reveal.Phase == reveal.Revealing
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			if m.reveal.Phase == reveal.Busy {
				m.markViewportDirty()
			}
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Resize(msg.Width, msg.Height)
		m.applyLayout()
		return m, nil
	case jobSignalMsg:
		m.activeJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		delete(m.activeJobs, msg.Snapshot.ID)
		snapshot := msg.Snapshot
		m.lastJob = &snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case historyLoadedMsg:
		m.stage = stageDisplay
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Could not load history: %v", msg.err)
			m.infoMessage = "Press q to quit."
			m.markViewportDirty()
			return m, nil
		}
		m.applyHistory(msg.samples)
		m.archived = msg.archived
		m.errorMessage = ""
		m.infoMessage = m.readyMessage()
		m.markViewportDirty()
		return m, nil
	case revealStateMsg:
		if msg.closed {
			m.states = nil
			return m, nil
		}
		previous := m.reveal.Phase
		m.reveal = msg.state
		m.onRevealState(previous)
		m.markViewportDirty()
		cmds := []tea.Cmd{waitForState(m.states)}
		if msg.state.Phase == reveal.Busy && previous != reveal.Busy {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)
	case archiveSavedMsg:
		m.stage = stageDisplay
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Saving failed: %v", msg.err)
			m.infoMessage = "Retry with s."
			return m, nil
		}
		m.savedDay = msg.day
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Insight for %s saved to %s.", msg.day, m.config.ArchivePath)
		return m, nil
	case workbookExportedMsg:
		m.stage = stageDisplay
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Export failed: %v", msg.err)
			m.infoMessage = "Retry with x."
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Exported %d days and %d insights to %s.", msg.days, msg.insights, msg.path)
		return m, nil
	}
	return m, nil
}

func (m *model) applyHistory(samples []vitals.Sample) {
	now := m.config.Now()
	m.samples = samples
	m.today, m.hasToday = vitals.LatestOn(samples, now)
	m.assessment = m.config.Engine.Assess(samples, now)
	m.steps = guide.Build(m.assessment, m.config.Engine.Config().MinPercentileSamples)
}

func (m *model) readyMessage() string {
	switch {
	case !m.hasToday:
		return "No scan recorded today. Add one with `careahead add`, then press g."
	case m.config.Controller == nil:
		return m.config.Unavailable
	case m.archived != nil:
		return "Showing today's saved insight. Press g to generate a fresh one."
	default:
		return "Press g to generate today's insight."
	}
}

func (m *model) onRevealState(previous reveal.Phase) {
	switch m.reveal.Phase {
	case reveal.Busy:
		m.errorMessage = ""
		m.infoMessage = "Generating insight…"
		m.savedDay = ""
		m.viewport.GotoTop()
	case reveal.Revealing:
		m.infoMessage = "Revealing insight… press c to show it all."
	case reveal.Done:
		if previous != reveal.Done {
			m.infoMessage = "Insight ready. Press s to save it, r to regenerate."
		}
	case reveal.Error:
		m.errorMessage = m.reveal.Err
		m.infoMessage = "Press g to try again."
	}
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	}
	if m.stage == stageLoading {
		return m, nil
	}

	switch key.String() {
	case "g":
		return m, m.startGeneration(false)
	case "r":
		return m, m.startGeneration(true)
	case "c", "esc":
		if m.config.Controller != nil {
			m.config.Controller.Cancel()
		}
		return m, nil
	case "s":
		return m, m.saveInsight()
	case "x":
		return m, m.exportWorkbook()
	case "home":
		m.viewport.GotoTop()
		return m, nil
	case "end":
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return m, cmd
}

func (m *model) startGeneration(restart bool) tea.Cmd {
	if !m.hasToday {
		m.infoMessage = "No scan recorded today. Add one with `careahead add`, then press g."
		return nil
	}
	if m.config.Controller == nil {
		m.errorMessage = m.config.Unavailable
		return nil
	}
	ctrl := m.config.Controller
	var started bool
	if restart {
		started = ctrl.Restart(m.config.Context, m.today, m.samples)
	} else {
		started = ctrl.Generate(m.config.Context, m.today, m.samples)
	}
	if !started {
		if restart {
			m.infoMessage = "Still waiting on the AI service. Press c to cancel."
		} else {
			m.infoMessage = "An insight is already on its way. Press r to restart the reveal."
		}
	}
	return nil
}

func (m *model) saveInsight() tea.Cmd {
	if m.reveal.Phase != reveal.Done || !m.reveal.HasSections {
		m.infoMessage = "Generate an insight before saving."
		return nil
	}
	if m.config.ArchivePath == "" {
		m.infoMessage = "No insight archive configured."
		return nil
	}
	if m.stage == stageWorking {
		return nil
	}
	var risk *int
	if m.assessment.HasRisk {
		r := m.assessment.Risk
		risk = &r
	}
	prompt := insight.BuildPrompt(m.today, m.samples, m.config.Format)
	res := insight.Result{Sections: m.reveal.Sections, Tier: m.reveal.Tier}
	m.stage = stageWorking
	m.infoMessage = "Saving insight…"
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSave, saveInsightJob(m.config.ArchivePath, m.today.Timestamp, prompt, res, m.config.Provider, risk)))
}

func (m *model) exportWorkbook() tea.Cmd {
	if m.config.ExportPath == "" {
		m.infoMessage = "No export path configured."
		return nil
	}
	if m.stage == stageWorking {
		return nil
	}
	m.stage = stageWorking
	m.infoMessage = "Exporting workbook…"
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExport, exportWorkbookJob(m.config.ExportPath, m.config.ArchivePath, m.config.Engine, m.samples)))
}

func (m *model) applyLayout() {
	m.viewport.Width = m.layout.viewportWidth
	m.viewport.Height = m.layout.viewportHeight
	m.markViewportDirty()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewport.SetContent(m.buildBody())
	m.viewportDirty = false
}
