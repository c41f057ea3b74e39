package main

import (
	"github.com/spf13/cobra"

	"github.com/careahead/vitalscope/internal/insight"
)

var (
	promptDate   string
	promptFormat string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the insight prompt for a day",
	Long: `Builds the exact prompt the insight command would send: today's reading,
the last 30 days of history and the computed summary. Nothing is sent.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringVar(&promptDate, "date", "", "day to describe (YYYY-MM-DD, default today)")
	promptCmd.Flags().StringVar(&promptFormat, "format", "", "response format to request: json or plain (default from config)")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(promptDate)
	if err != nil {
		return err
	}
	format, err := resolveFormat(promptFormat)
	if err != nil {
		return err
	}
	samples, today, err := scanFor(cmd.Context(), day)
	if err != nil {
		return err
	}
	cmd.Print(insight.BuildPrompt(today, samples, format))
	return nil
}

func resolveFormat(value string) (insight.Format, error) {
	if value == "" {
		return cfg.Format(), nil
	}
	return insight.ParseFormat(value)
}
