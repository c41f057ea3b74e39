package tui

import "github.com/charmbracelet/lipgloss"

type stage int

const (
	stageLoading stage = iota
	stageDisplay
	stageWorking
)

const heroTitle = "CareAhead"

const heroTagline = "Your vitals, read against your own baseline."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347")).Italic(true)

	chipStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1).MarginRight(1)
	chipEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4")).Background(lipgloss.Color("#393552")).Padding(0, 1).MarginRight(1)

	stableStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	withinRangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ebcb8b"))
	outOfRangeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bf616a"))
	noBaselineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)

	riskBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#ff8c00")).Padding(0, 2)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	helpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
)
