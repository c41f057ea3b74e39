package tui

import (
	"strings"
	"testing"
)

func TestPageLayoutResize(t *testing.T) {
	cases := []struct {
		name           string
		width          int
		height         int
		viewportWidth  int
		viewportHeight int
	}{
		{name: "narrow", width: 80, height: 24, viewportWidth: 76, viewportHeight: 11},
		{name: "wide", width: 200, height: 40, viewportWidth: 196, viewportHeight: 27},
		{name: "tiny", width: 30, height: 10, viewportWidth: 40, viewportHeight: 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Resize(tc.width, tc.height)
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
		})
	}
}

func TestPageLayoutFitsMeasuredChrome(t *testing.T) {
	layout := newPageLayout()
	if layout.Fit(20) {
		t.Fatal("fit before the first resize must not change anything")
	}

	layout.Resize(100, 40)
	if !layout.Fit(20) || layout.viewportHeight != 20 {
		t.Fatalf("expected 20 rows after fit, got %d", layout.viewportHeight)
	}
	if layout.Fit(20) {
		t.Fatal("unchanged chrome should report no change")
	}
	layout.Fit(38)
	if layout.viewportHeight != minViewportRows {
		t.Fatalf("expected floor of %d rows, got %d", minViewportRows, layout.viewportHeight)
	}
}

func TestChromeRowsCountsSeparators(t *testing.T) {
	// two blocks of 1 and 3 rows around the viewport: 4 rows plus 2 blank separators
	if got := chromeRows("title", "", "a\nb\nc"); got != 6 {
		t.Fatalf("expected 6 rows, got %d", got)
	}
	if got := chromeRows(); got != 0 {
		t.Fatalf("expected 0 rows for a bare viewport, got %d", got)
	}
}

func TestIndentMultiline(t *testing.T) {
	got := indentMultiline("one\ntwo", "  ")
	if got != "  one\n  two" {
		t.Fatalf("unexpected indent %q", got)
	}
	if joined := joinNonEmpty([]string{"a", "  ", "b"}); strings.Count(joined, "\n") != 2 {
		t.Fatalf("unexpected join %q", joined)
	}
}
