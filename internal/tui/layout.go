package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// defaultChromeRows approximates the hero, chips, baseline panel and
	// footer until a frame has been measured.
	defaultChromeRows = 13
	minViewportRows   = 6
)

// pageLayout gives the insight viewport whatever rows the dashboard chrome
// leaves free. The chrome is measured from each rendered frame, so a
// wrapped error line or the help box shrinks the viewport instead of
// pushing the status bar off screen.
type pageLayout struct {
	windowWidth    int
	windowHeight   int
	chromeRows     int
	viewportWidth  int
	viewportHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		chromeRows:     defaultChromeRows,
		viewportWidth:  80,
		viewportHeight: 20,
	}
}

// Resize records a new terminal size.
func (l *pageLayout) Resize(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	l.viewportWidth = max(width-viewportHorizontalPadding, minViewportWidth)
	l.fitHeight()
}

// Fit recomputes the viewport height for chromeRows of surrounding content
// and reports whether it changed. Before the first Resize it is a no-op.
func (l *pageLayout) Fit(chromeRows int) bool {
	if l.windowHeight == 0 || chromeRows == l.chromeRows {
		return false
	}
	l.chromeRows = chromeRows
	before := l.viewportHeight
	l.fitHeight()
	return l.viewportHeight != before
}

func (l *pageLayout) fitHeight() {
	l.viewportHeight = max(l.windowHeight-l.chromeRows, minViewportRows)
}

// chromeRows counts the rows joinNonEmpty will spend on parts plus the
// viewport between them, separators included.
func chromeRows(parts ...string) int {
	rows, blocks := 0, 1
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		rows += lipgloss.Height(part)
		blocks++
	}
	return rows + blocks - 1
}

type contentBuilder struct {
	strings.Builder
}

func (cb *contentBuilder) line(s string) {
	cb.WriteString(s)
	cb.WriteByte('\n')
}

func indentMultiline(text, prefix string) string {
	return prefix + strings.ReplaceAll(text, "\n", "\n"+prefix)
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	return max(width-max(padding, 0), 20)
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n\n")
}
