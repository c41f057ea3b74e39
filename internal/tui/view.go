package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/careahead/vitalscope/internal/baseline"
	"github.com/careahead/vitalscope/internal/guide"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/reveal"
)

func (m *model) View() string {
	if m.stage == stageLoading {
		return joinNonEmpty([]string{m.heroView(), fmt.Sprintf("%s %s", m.spinner.View(), m.infoMessage)})
	}
	above := []string{m.heroView(), m.chipsView(), m.baselineView()}
	below := []string{m.footerView()}
	if m.helpVisible {
		below = append(below, m.helpView())
	}
	if m.layout.Fit(chromeRows(append(above, below...)...)) {
		m.applyLayout()
	}
	m.refreshViewportIfDirty()

	parts := append(above, m.viewport.View())
	return joinNonEmpty(append(parts, below...))
}

func (m *model) heroView() string {
	title := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render(heroTitle), "  ", taglineStyle.Render(heroTagline))
	if m.stage == stageLoading {
		return title
	}
	var meta []string
	if len(m.samples) > 0 {
		latest := m.samples[len(m.samples)-1]
		meta = append(meta, "last scan "+humanize.Time(latest.Timestamp))
	}
	meta = append(meta, fmt.Sprintf("%s %s of history", humanize.Comma(int64(m.assessment.HistoryCount)), plural(m.assessment.HistoryCount, "day", "days")))
	if m.config.Provider != "" {
		meta = append(meta, m.config.Provider)
	}
	return title + "\n" + helperStyle.Render(strings.Join(meta, "  •  "))
}

func (m *model) chipsView() string {
	if !m.hasToday {
		return chipEmptyStyle.Render("No scan today")
	}
	chips := []string{
		chipStyle.Render(fmt.Sprintf("HR %d bpm", m.today.HeartRate)),
		chipStyle.Render(fmt.Sprintf("BR %d rpm", m.today.BreathingRate)),
	}
	if h, ok := m.today.Sleep(); ok {
		chips = append(chips, chipStyle.Render(fmt.Sprintf("Sleep %.1f h", h)))
	} else {
		chips = append(chips, chipEmptyStyle.Render("Sleep not logged"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m *model) baselineView() string {
	rows := []string{
		sectionHeaderStyle.Render("Baseline"),
		metricLine(m.assessment.HeartRate),
		metricLine(m.assessment.Breathing),
	}
	bands := strings.Join(rows, "\n")

	var risk string
	switch {
	case m.assessment.HasRisk:
		risk = fmt.Sprintf("Risk %d/100", m.assessment.Risk)
	case !m.hasToday:
		risk = noBaselineStyle.Render("Risk: no scan today")
	default:
		risk = noBaselineStyle.Render("Risk: no baseline yet")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, bands, "   ", riskBoxStyle.Render(risk))
}

func metricLine(a baseline.MetricAssessment) string {
	label := fmt.Sprintf("%-15s", capitalize(a.Metric.String()))
	if !a.HasBaseline {
		return label + noBaselineStyle.Render("no baseline yet")
	}
	unit := a.Metric.Unit()
	band := fmt.Sprintf("avg %.1f %s  band %.1f-%.1f", a.Stats.Average, unit, a.Stats.Low, a.Stats.High)
	if !a.HasValue {
		return label + band
	}
	return label + band + "  " + stabilityStyle(a.Stability).Render(a.Stability.String())
}

func stabilityStyle(s baseline.Stability) lipgloss.Style {
	switch s {
	case baseline.Stable:
		return stableStyle
	case baseline.WithinRange:
		return withinRangeStyle
	case baseline.OutOfRange:
		return outOfRangeStyle
	default:
		return noBaselineStyle
	}
}

func (m *model) buildBody() string {
	cb := &contentBuilder{}
	m.writeInsight(cb)
	cb.WriteByte('\n')
	m.writeGuide(cb)
	return cb.String()
}

func (m *model) writeInsight(cb *contentBuilder) {
	cb.line(sectionHeaderStyle.Render("Today's Insight"))
	switch m.reveal.Phase {
	case reveal.Busy:
		cb.line(helperStyle.Render(fmt.Sprintf("%s Generating…", m.spinner.View())))
	case reveal.Revealing, reveal.Done:
		m.writeBlocks(cb, m.reveal.Visible())
	case reveal.Error:
		cb.line(errorStyle.Render(m.reveal.Err))
	default:
		switch {
		case m.archived != nil:
			cb.line(helperStyle.Render(fmt.Sprintf("Saved %s", humanize.Time(m.archived.GeneratedAt))))
			m.writeBlocks(cb, m.archived.Sections.Blocks())
		case m.config.Controller == nil:
			cb.line(helperStyle.Render(m.config.Unavailable))
		case !m.hasToday:
			cb.line(helperStyle.Render("Record today's scan to get an insight."))
		default:
			cb.line(helperStyle.Render("Press g to generate today's insight."))
		}
	}
}

func (m *model) writeBlocks(cb *contentBuilder, blocks []insight.Block) {
	wrap := m.wrapWidth(2)
	for _, block := range blocks {
		cb.WriteByte('\n')
		cb.line(lipgloss.NewStyle().Bold(true).Render(block.Title))
		for i, p := range block.Paragraphs {
			if i > 0 {
				cb.WriteByte('\n')
			}
			cb.line(indentMultiline(wordwrap.String(p, wrap), "  "))
		}
	}
}

func (m *model) writeGuide(cb *contentBuilder) {
	cb.line(sectionHeaderStyle.Render("Next Scan"))
	cb.line(helperStyle.Render("Data quality: " + guide.Quality(m.assessment)))
	wrap := m.wrapWidth(4)
	for _, step := range m.steps {
		cb.line(" • " + step.Title)
		cb.line(indentMultiline(helperStyle.Render(wordwrap.String(step.Description, wrap)), "   "))
	}
}

func (m *model) footerView() string {
	var lines []string
	lines = append(lines, m.statusBarView())
	if m.errorMessage != "" {
		lines = append(lines, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.stage == stageWorking {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		lines = append(lines, helperStyle.Render(message))
	}
	return strings.Join(lines, "\n")
}

func (m *model) statusBarView() string {
	stats := []string{fmt.Sprintf("Insight %s", m.reveal.Phase)}
	if m.reveal.Phase == reveal.Revealing {
		stats = append(stats, fmt.Sprintf("%d/%d", m.reveal.Revealed, m.reveal.Total))
	}
	if m.savedDay != "" {
		stats = append(stats, "saved")
	}
	stats = append(stats, m.jobStatusBadges()...)
	stats = append(stats, "? help")
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, job := range m.activeJobs {
		badges = append(badges, fmt.Sprintf("%s…", job.Kind))
	}
	if m.lastJob != nil && m.lastJob.Status == jobStatusFailed {
		badges = append(badges, fmt.Sprintf("%s failed", m.lastJob.Kind))
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) helpView() string {
	hints := []keyHint{
		{"g", "Generate insight"},
		{"r", "Restart"},
		{"c", "Cancel / show all"},
		{"s", "Save insight"},
		{"x", "Export workbook"},
		{"↑/↓", "Scroll"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Keys")}
	for _, hint := range hints {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(hint.Key), keyDescStyle.Render(" "+hint.Description)))
	}
	rows = append(rows, helperStyle.Render(insight.DefaultDisclaimer))
	return helpBoxStyle.Render(strings.Join(rows, "\n"))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
