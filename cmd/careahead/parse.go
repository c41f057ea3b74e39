package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/careahead/vitalscope/internal/insight"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a raw model response into insight sections",
	Long: `Reads a raw model response from a file, or from stdin when no file (or "-")
is given, and prints the five insight sections as JSON together with the
extraction tier that produced them. Parsing never fails; unusable input
falls back to placeholder text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseFormat, "format", "", "format the response was requested in: json or plain (default from config)")
	rootCmd.AddCommand(parseCmd)
}

type parseOutput struct {
	Tier     string           `json:"tier"`
	Sections insight.Sections `json:"sections"`
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(parseFormat)
	if err != nil {
		return err
	}

	var raw []byte
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	res := insight.ParseResponse(string(raw), format)
	data, err := json.MarshalIndent(parseOutput{
		Tier:     res.Tier.String(),
		Sections: res.Sections,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
