// Package report exports the baseline timeline and archived insights as an
// xlsx workbook.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/baseline"
)

const (
	TimelineSheet = "Timeline"
	InsightsSheet = "Insights"

	dayLayout = "2006-01-02"
)

// TimelineHeader is the first row of the timeline sheet.
var TimelineHeader = []string{
	"Day",
	"Heart Rate (bpm)",
	"HR Average",
	"HR Low",
	"HR High",
	"HR Stability",
	"Breathing Rate (rpm)",
	"BR Average",
	"BR Low",
	"BR High",
	"BR Stability",
	"Sleep (h)",
	"Risk Score",
	"Notes",
}

// InsightsHeader is the first row of the insights sheet.
var InsightsHeader = []string{
	"Day",
	"Generated",
	"Provider",
	"Risk Score",
	"Introduction",
	"Heart Rate",
	"Breathing Rate",
	"Final Thoughts",
	"Disclaimer",
}

var timelineWidths = []float64{12, 16, 12, 10, 10, 14, 20, 12, 10, 10, 14, 10, 11, 30}

var insightsWidths = []float64{12, 18, 24, 11, 50, 50, 50, 50, 24}

// Build assembles the workbook. The caller closes the returned file.
func Build(points []baseline.Point, entries []archive.Entry) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create wrap style: %w", err)
	}

	index, err := f.NewSheet(TimelineSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(InsightsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeHeader(f, TimelineSheet, TimelineHeader, timelineWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, p := range points {
		if err := setRow(f, TimelineSheet, i+2, timelineRow(p)); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeHeader(f, InsightsSheet, InsightsHeader, insightsWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, e := range entries {
		row := i + 2
		if err := setRow(f, InsightsSheet, row, insightRow(e)); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(InsightsSheet, cellName(5, row), cellName(len(InsightsHeader), row), wrapStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set insight style: %w", err)
		}
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, points []baseline.Point, entries []archive.Entry) error {
	f, err := Build(points, entries)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return f.Close()
}

// SaveFile writes the workbook to path, creating parent directories.
func SaveFile(path string, points []baseline.Point, entries []archive.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(out, points, entries); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeHeader(f *excelize.File, sheet string, header []string, widths []float64, style int) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := setRow(f, sheet, 1, values); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, 1), cellName(len(header), 1), style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell := cellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func cellName(col, row int) string {
	// col and row are always positive here
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func timelineRow(p baseline.Point) []any {
	row := []any{p.Day.Format(dayLayout), p.Sample.HeartRate}
	row = append(row, metricCells(p.HeartRate)...)
	row = append(row, p.Sample.BreathingRate)
	row = append(row, metricCells(p.Breathing)...)
	if h, ok := p.Sample.Sleep(); ok {
		row = append(row, h)
	} else {
		row = append(row, nil)
	}
	if p.HasRisk {
		row = append(row, p.Risk)
	} else {
		row = append(row, nil)
	}
	if p.Sample.Notes != "" {
		row = append(row, p.Sample.Notes)
	} else {
		row = append(row, nil)
	}
	return row
}

// metricCells is average, low, high and stability; the band cells stay empty
// until a baseline exists.
func metricCells(m baseline.MetricAssessment) []any {
	if !m.HasBaseline {
		return []any{nil, nil, nil, m.Stability.String()}
	}
	return []any{round1(m.Stats.Average), round1(m.Stats.Low), round1(m.Stats.High), m.Stability.String()}
}

func insightRow(e archive.Entry) []any {
	var risk any
	if e.Risk != nil {
		risk = *e.Risk
	}
	return []any{
		e.Day,
		e.GeneratedAt.Local().Format("2006-01-02 15:04"),
		e.Provider,
		risk,
		e.Sections.Introduction,
		e.Sections.HeartRateDiscussion,
		e.Sections.BreathingRateDiscussion,
		e.Sections.FinalThoughts,
		e.Sections.Disclaimer,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
