package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/careahead/vitalscope/internal/insight"
)

func sampleSections(intro string) insight.Sections {
	return insight.Sections{
		Introduction:            intro,
		HeartRateDiscussion:     "HR steady.",
		BreathingRateDiscussion: "BR calm.",
		FinalThoughts:           "Rest well.",
		Disclaimer:              insight.DefaultDisclaimer,
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "insights.json")
	day := time.Date(2026, time.July, 3, 18, 0, 0, 0, time.UTC)
	risk := 12
	entry := NewEntry(day, "prompt text", insight.Result{Sections: sampleSections("Calm day."), Tier: insight.TierStrict}, "Gemini (gemini-2.5-flash)")
	entry.Risk = &risk

	if err := Save(path, entry); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(loaded))
	}
	got := loaded[0]
	if got.Day != "2026-07-03" || got.Tier != "strict" || got.EntryType != entryTypeInsight {
		t.Fatalf("unexpected entry header: %+v", got)
	}
	if got.Risk == nil || *got.Risk != 12 {
		t.Fatalf("risk not kept: %+v", got.Risk)
	}
	if diff := cmp.Diff(entry.Sections, got.Sections); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSupersedesSameDay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "insights.json")
	day := time.Date(2026, time.July, 3, 9, 0, 0, 0, time.UTC)
	other := day.AddDate(0, 0, -1)

	for _, e := range []Entry{
		NewEntry(day, "a", insight.Result{Sections: sampleSections("First take.")}, "x"),
		NewEntry(other, "b", insight.Result{Sections: sampleSections("Yesterday.")}, "x"),
		NewEntry(day.Add(8*time.Hour), "c", insight.Result{Sections: sampleSections("Second take.")}, "x"),
	} {
		if err := Save(path, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected one entry per day, got %d", len(loaded))
	}
	if loaded[0].Day != "2026-07-02" {
		t.Fatalf("expected entries ordered by day, got %s first", loaded[0].Day)
	}
	found, ok, err := Find(path, day)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if found.Sections.Introduction != "Second take." {
		t.Fatalf("expected newest generation to win, got %q", found.Sections.Introduction)
	}
}

func TestReusableMatchesFingerprint(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "insights.json")
	day := time.Date(2026, time.July, 3, 9, 0, 0, 0, time.UTC)
	if err := Save(path, NewEntry(day, "exact prompt", insight.Result{Sections: sampleSections("Hi.")}, "x")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, ok, err := Reusable(path, day, "exact prompt"); err != nil || !ok {
		t.Fatalf("expected identical prompt to be reusable: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := Reusable(path, day, "exact prompt "); ok {
		t.Fatal("a different prompt must not reuse the archived insight")
	}
	if _, ok, _ := Reusable(path, day.AddDate(0, 0, 1), "exact prompt"); ok {
		t.Fatal("another day must not reuse the archived insight")
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.json")
	entries, err := Load(path)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty archive, got %v, %v", entries, err)
	}
	if _, ok, err := Find(path, time.Now()); ok || err != nil {
		t.Fatalf("expected no entry, got ok=%v err=%v", ok, err)
	}
}

func TestCorruptFileReportsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "insights.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a corrupt archive")
	}
}

func TestSaveReplacesFileWithoutLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "insights.json")
	day := time.Date(2026, time.July, 3, 9, 0, 0, 0, time.UTC)
	for _, intro := range []string{"First.", "Second."} {
		if err := Save(path, NewEntry(day, "p", insight.Result{Sections: sampleSections(intro)}, "x")); err != nil {
			t.Fatal(err)
		}
	}

	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0].Name() != "insights.json" {
		t.Fatalf("expected only the archive in %s, got %v", dir, names)
	}
	entries, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Sections.Introduction != "Second." {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestTrendsLiveAlongsideInsights(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "insights.json")
	day := time.Date(2026, time.July, 3, 9, 0, 0, 0, time.UTC)
	if err := Save(path, NewEntry(day, "p", insight.Result{Sections: sampleSections("Hi.")}, "x")); err != nil {
		t.Fatal(err)
	}
	for _, tr := range []Trend{
		{Day: DayKey(day), Metric: "heart rate", Paragraph: "Drifting down."},
		{Day: DayKey(day), Metric: "breathing rate", Paragraph: "Flat."},
		{Day: DayKey(day), Metric: "heart rate", Paragraph: "Gently lower this week."},
	} {
		if err := SaveTrend(path, tr); err != nil {
			t.Fatalf("save trend: %v", err)
		}
	}

	trends, err := LoadTrends(path)
	if err != nil {
		t.Fatalf("load trends: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected one trend per metric, got %d", len(trends))
	}
	if trends[0].Paragraph != "Gently lower this week." {
		t.Fatalf("expected replacement in place, got %q", trends[0].Paragraph)
	}
	entries, err := Load(path)
	if err != nil || len(entries) != 1 {
		t.Fatalf("trend entries must not show up as insights: %v %v", entries, err)
	}
}
