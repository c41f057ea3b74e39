package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/archive"
	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/llm"
	"github.com/careahead/vitalscope/internal/vitals"
)

var (
	insightDate   string
	insightFormat string
	insightSave   bool
	insightFresh  bool
	insightJSON   bool
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Generate today's AI insight",
	Long: `Sends the day's prompt to the configured language model and prints the
parsed insight. When the archive already holds an insight for the same day
generated from an identical prompt it is reused instead; pass --fresh to
always call the model.`,
	Args: cobra.NoArgs,
	RunE: runInsight,
}

var (
	trendSave bool
	trendList bool
)

var trendCmd = &cobra.Command{
	Use:   "trend [heart|breathing]",
	Short: "Describe the recent trend of one metric",
	Long: `Asks the language model for one short paragraph describing the last 30
days of heart rate or breathing rate. With --list, prints the archived
trend paragraphs instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrend,
}

func init() {
	insightCmd.Flags().StringVar(&insightDate, "date", "", "day to describe (YYYY-MM-DD, default today)")
	insightCmd.Flags().StringVar(&insightFormat, "format", "", "response format to request: json or plain (default from config)")
	insightCmd.Flags().BoolVar(&insightSave, "save", false, "store the insight in the archive")
	insightCmd.Flags().BoolVar(&insightFresh, "fresh", false, "ignore an archived insight for the same prompt")
	insightCmd.Flags().BoolVar(&insightJSON, "json", false, "output the sections as JSON")
	rootCmd.AddCommand(insightCmd)

	trendCmd.Flags().BoolVar(&trendSave, "save", false, "store the paragraph in the archive")
	trendCmd.Flags().BoolVar(&trendList, "list", false, "print archived trend paragraphs")
	rootCmd.AddCommand(trendCmd)
}

func runInsight(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(insightDate)
	if err != nil {
		return err
	}
	format, err := resolveFormat(insightFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	samples, today, err := scanFor(ctx, day)
	if err != nil {
		return err
	}
	prompt := insight.BuildPrompt(today, samples, format)

	if cfg.Storage.Archive != "" && !insightFresh {
		entry, ok, err := archive.Reusable(cfg.Storage.Archive, day, prompt)
		if err != nil {
			logger.Warn("archive unreadable", zap.String("path", cfg.Storage.Archive), zap.Error(err))
		}
		if ok {
			logger.Info("reusing archived insight", zap.String("day", entry.Day))
			return printInsight(cmd, entry.Sections, fmt.Sprintf("archived %s", entry.GeneratedAt.Format("2006-01-02 15:04")))
		}
	}

	raw, provider, err := generate(ctx, prompt)
	if err != nil {
		return err
	}
	res := insight.ParseResponse(raw, format)
	logger.Info("insight parsed", zap.String("tier", res.Tier.String()), zap.String("provider", provider))

	if insightSave {
		entry := archive.NewEntry(day, prompt, res, provider)
		a := engine().Assess(samples, day)
		if a.HasRisk {
			risk := a.Risk
			entry.Risk = &risk
		}
		if err := archive.Save(cfg.Storage.Archive, entry); err != nil {
			return fmt.Errorf("failed to save insight: %w", err)
		}
	}
	return printInsight(cmd, res.Sections, provider)
}

// generate runs one model call and maps failures onto the user-facing
// wording; the underlying error is logged.
func generate(ctx context.Context, prompt string) (string, string, error) {
	gen, err := generator(ctx)
	if err != nil {
		logger.Error("provider setup failed", zap.Error(err))
		return "", "", errors.New(llm.Describe(err))
	}
	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		logger.Error("generation failed", zap.String("provider", gen.Name()), zap.Error(err))
		return "", "", errors.New(llm.Describe(err))
	}
	return raw, gen.Name(), nil
}

func printInsight(cmd *cobra.Command, sections insight.Sections, source string) error {
	if insightJSON {
		data, err := sections.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal sections: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	for i, block := range sections.Blocks() {
		if i > 0 {
			cmd.Println()
		}
		cmd.Println(block.Title)
		cmd.Println(strings.Repeat("-", len(block.Title)))
		cmd.Println(strings.Join(block.Paragraphs, "\n\n"))
	}
	if source != "" {
		cmd.Printf("\n(%s)\n", source)
	}
	return nil
}

func parseMetric(value string) (vitals.Metric, error) {
	switch strings.ToLower(value) {
	case "", "heart", "hr", "heart-rate":
		return vitals.HeartRate, nil
	case "breathing", "br", "breathing-rate":
		return vitals.BreathingRate, nil
	default:
		return vitals.HeartRate, fmt.Errorf("unknown metric %q, want heart or breathing", value)
	}
}

func runTrend(cmd *cobra.Command, args []string) error {
	if trendList {
		trends, err := archive.LoadTrends(cfg.Storage.Archive)
		if err != nil {
			return err
		}
		if len(trends) == 0 {
			cmd.Println("No archived trends.")
			return nil
		}
		for _, tr := range trends {
			cmd.Printf("%s  %s\n  %s\n", tr.Day, tr.Metric, tr.Paragraph)
		}
		return nil
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	metric, err := parseMetric(name)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	samples, err := loadHistory(ctx)
	if err != nil {
		return err
	}
	prompt := insight.BuildTrendPrompt(metric, samples)
	raw, _, err := generate(ctx, prompt)
	if err != nil {
		return err
	}
	paragraph := strings.Join(insight.ParagraphsOf(raw), " ")
	if paragraph == "" {
		return errors.New(llm.Describe(llm.ErrEmptyResponse))
	}

	if trendSave {
		day := now()
		err := archive.SaveTrend(cfg.Storage.Archive, archive.Trend{
			Day:         archive.DayKey(day),
			Metric:      metric.String(),
			Fingerprint: archive.FingerprintKey(insight.Fingerprint(prompt)),
			Paragraph:   paragraph,
		})
		if err != nil {
			return fmt.Errorf("failed to save trend: %w", err)
		}
	}
	cmd.Println(paragraph)
	return nil
}
