package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history and insights to an Excel workbook",
	Long: `Writes a workbook with a Timeline sheet (one row per day with the rolling
baseline, stability and risk score) and an Insights sheet with every
archived insight.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "workbook path (default storage.export)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	samples, err := loadHistory(cmd.Context())
	if err != nil {
		return err
	}
	points := engine().Timeline(samples)
	out := exportOut
	if out == "" {
		out = cfg.Storage.Export
	}

	var entries []archive.Entry
	if cfg.Storage.Archive != "" {
		entries, err = archive.Load(cfg.Storage.Archive)
		if err != nil {
			return fmt.Errorf("failed to read insight archive: %w", err)
		}
	}

	if err := report.SaveFile(out, points, entries); err != nil {
		return err
	}
	logger.Info("workbook exported", zap.String("path", out), zap.Int("days", len(points)), zap.Int("insights", len(entries)))
	cmd.Printf("Exported %s days and %s insights to %s.\n", humanize.Comma(int64(len(points))), humanize.Comma(int64(len(entries))), out)
	return nil
}
