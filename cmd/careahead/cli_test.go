package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/llm"
	"github.com/careahead/vitalscope/internal/report"
	"github.com/careahead/vitalscope/internal/store"
	"github.com/careahead/vitalscope/internal/vitals"
)

var fixedNow = time.Date(2026, time.March, 5, 18, 0, 0, 0, time.UTC)

const insightResponse = `{"introduction":"A steady week.","heartRateDiscussion":"Heart rate ran above your usual band today.","breathingRateDiscussion":"Breathing matched your usual pace.","finalThoughts":"An early night may help.","disclaimer":"Not medical advice."}`

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type workspace struct {
	dir     string
	config  string
	db      string
	archive string
}

func resetFlags() {
	configPath, noAltScreen = "", false
	baselineDate, baselineJSON = "", false
	promptDate, promptFormat = "", ""
	parseFormat = ""
	insightDate, insightFormat, insightSave, insightFresh, insightJSON = "", "", false, false, false
	trendSave, trendList = false, false
	addHeartRate, addBreathingRate, addSleep, addNotes, addAt = 0, 0, -1, "", ""
	seedDays = store.SeedDays
	exportOut = ""
}

func setup(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		config:  filepath.Join(dir, "careahead.yaml"),
		db:      filepath.Join(dir, "careahead.db"),
		archive: filepath.Join(dir, "insights.json"),
	}
	yaml := fmt.Sprintf("storage:\n  database: %s\n  archive: %s\nlogging:\n  file: %s\n",
		ws.db, ws.archive, filepath.Join(dir, "careahead.log"))
	require.NoError(t, os.WriteFile(ws.config, []byte(yaml), 0o644))

	resetFlags()
	now = func() time.Time { return fixedNow }
	getenv = func(string) string { return "" }
	t.Cleanup(func() {
		now = time.Now
		getenv = os.Getenv
		newGenerator = llm.New
		resetFlags()
	})
	return ws
}

func (ws workspace) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append(args, "--config", ws.config))
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

// seedHistory stores ten calm days before fixedNow and, when todayHR is
// positive, a scan for fixedNow itself.
func (ws workspace) seedHistory(t *testing.T, todayHR int) {
	t.Helper()
	st, err := store.Open(ws.db, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	for i := 10; i >= 1; i-- {
		_, err := st.Add(ctx, vitals.Sample{
			Timestamp:     fixedNow.AddDate(0, 0, -i).Add(-6 * time.Hour),
			HeartRate:     60 + i%5,
			BreathingRate: 14,
			SleepHours:    vitals.Hours(7),
		})
		require.NoError(t, err)
	}
	if todayHR > 0 {
		_, err := st.Add(ctx, vitals.Sample{Timestamp: fixedNow.Add(-3 * time.Hour), HeartRate: todayHR, BreathingRate: 14})
		require.NoError(t, err)
	}
}

func (ws workspace) useGenerator(gen llm.Generator, keys *[]string) {
	getenv = func(name string) string {
		if name == "GEMINI_API_KEY" {
			return "test-key"
		}
		return ""
	}
	newGenerator = func(ctx context.Context, c llm.Config) (llm.Generator, error) {
		if keys != nil {
			*keys = append(*keys, c.APIKey)
		}
		return gen, nil
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "careahead", rootCmd.Use)
	for _, name := range []string{"baseline", "prompt", "parse", "insight", "trend", "add", "seed", "export"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestAddCmd_RecordsScan(t *testing.T) {
	ws := setup(t)

	out, err := ws.execute(t, "add", "--hr", "64", "--br", "15", "--sleep", "7.5", "--at", "2026-03-05T09:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded scan #1 for 2026-03-05")

	st, err := store.Open(ws.db, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()
	samples, err := st.History(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	hours, ok := samples[0].Sleep()
	assert.True(t, ok)
	assert.InDelta(t, 7.5, hours, 1e-9)
}

func TestAddCmd_RejectsImplausibleReading(t *testing.T) {
	ws := setup(t)

	_, err := ws.execute(t, "add", "--hr", "10", "--br", "14")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heart rate")
}

func TestSeedCmd_OnlySeedsEmptyStore(t *testing.T) {
	ws := setup(t)

	out, err := ws.execute(t, "seed", "--days", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 5 days")

	out, err = ws.execute(t, "seed", "--days", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")
}

func TestBaselineCmd_TextOutput(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)

	out, err := ws.execute(t, "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "HR 95 bpm, BR 14 rpm, sleep not logged")
	assert.Contains(t, out, "out of range")
	assert.Contains(t, out, "/100")
	assert.Contains(t, out, "Data quality:")
}

func TestBaselineCmd_JSONOutput(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)

	out, err := ws.execute(t, "baseline", "--json")
	require.NoError(t, err)

	var got assessmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2026-03-05", got.Day)
	assert.True(t, got.HasToday)
	assert.Equal(t, 10, got.History)
	assert.Equal(t, "out of range", got.HeartRate.Stability)
	require.NotNil(t, got.Risk)
	assert.Greater(t, *got.Risk, 0)
}

func TestBaselineCmd_NoScanToday(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 0)

	out, err := ws.execute(t, "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "no scan recorded")
	assert.Contains(t, out, "Risk:           no scan today")
}

func TestPromptCmd_RequiresScanToday(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 0)

	_, err := ws.execute(t, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scan recorded on 2026-03-05")
}

func TestPromptCmd_PrintsHistory(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)

	out, err := ws.execute(t, "prompt", "--format", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "Today (2026-03-05)")
	assert.Contains(t, out, "- Heart rate: 95 bpm")
	assert.Contains(t, out, "- 2026-03-04: HR")
	assert.NotContains(t, out, `"heartRateDiscussion"`)
}

func TestParseCmd_ReadsStdin(t *testing.T) {
	ws := setup(t)
	rootCmd.SetIn(strings.NewReader("```json\n" + insightResponse + "\n```"))

	out, err := ws.execute(t, "parse")
	require.NoError(t, err)
	assert.Contains(t, out, `"tier": "strict"`)
	assert.Contains(t, out, "Heart rate ran above your usual band today.")
}

func TestParseCmd_ReadsFile(t *testing.T) {
	ws := setup(t)
	path := filepath.Join(ws.dir, "raw.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"introduction": "Cut off mid-answer", "heartRateDiscussion": "Steady`), 0o644))

	out, err := ws.execute(t, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"tier": "scraped"`)
	assert.Contains(t, out, "Cut off mid-answer")
}

func TestInsightCmd_GeneratesSavesAndReuses(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)
	gen := &fakeGenerator{text: insightResponse}
	var keys []string
	ws.useGenerator(gen, &keys)

	out, err := ws.execute(t, "insight", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Heart Rate\n----------")
	assert.Contains(t, out, "Heart rate ran above your usual band today.")
	assert.Contains(t, out, "(fake)")
	assert.Equal(t, []string{"test-key"}, keys)
	require.Len(t, gen.prompts, 1)

	entry, ok, err := archive.Find(ws.archive, fixedNow)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "strict", entry.Tier)
	require.NotNil(t, entry.Risk)

	out, err = ws.execute(t, "insight")
	require.NoError(t, err)
	assert.Contains(t, out, "(archived ")
	assert.Len(t, gen.prompts, 1, "an identical prompt reuses the archived insight")

	_, err = ws.execute(t, "insight", "--fresh")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 2)
}

func TestInsightCmd_DescribesFailure(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)
	ws.useGenerator(&fakeGenerator{err: &llm.HTTPError{Provider: "fake", Status: 429}}, nil)

	_, err := ws.execute(t, "insight")
	require.Error(t, err)
	assert.Equal(t, "The AI service is rate limiting requests. Wait a moment and try again.", err.Error())
}

func TestInsightCmd_MissingAPIKey(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)

	_, err := ws.execute(t, "insight")
	require.Error(t, err)
	assert.Equal(t, "Missing API key. Set it in the environment and try again.", err.Error())
}

func TestTrendCmd_SavesAndLists(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 0)
	gen := &fakeGenerator{text: "Your breathing rate held steady at 14 rpm.\n\nNot medical advice."}
	ws.useGenerator(gen, nil)

	out, err := ws.execute(t, "trend", "breathing", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "held steady at 14 rpm. Not medical advice.")
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "breathing rate")

	out, err = ws.execute(t, "trend", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-03-05  breathing rate")
}

func TestTrendCmd_UnknownMetric(t *testing.T) {
	ws := setup(t)

	_, err := ws.execute(t, "trend", "sleep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")
}

func TestExportCmd_WritesWorkbook(t *testing.T) {
	ws := setup(t)
	ws.seedHistory(t, 95)
	entry := archive.NewEntry(fixedNow, "prompt", insight.ParseDetailed(insightResponse), "fake")
	require.NoError(t, archive.Save(ws.archive, entry))

	path := filepath.Join(ws.dir, "out", "report.xlsx")
	out, err := ws.execute(t, "export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 11 days and 1 insights")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.TimelineSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 12)
	rows, err = f.GetRows(report.InsightsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestResolveDay(t *testing.T) {
	resetFlags()
	now = func() time.Time { return fixedNow }
	defer func() { now = time.Now }()

	day, err := resolveDay("")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, day)

	day, err = resolveDay("2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, day.Day())
	assert.Equal(t, 12, day.Hour())

	_, err = resolveDay("02/01/2026")
	assert.Error(t, err)
}
