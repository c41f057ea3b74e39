package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/careahead/vitalscope/internal/store"
	"github.com/careahead/vitalscope/internal/vitals"
)

var (
	addHeartRate     int
	addBreathingRate int
	addSleep         float64
	addNotes         string
	addAt            string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a scan",
	Long: `Stores one completed scan. Heart rate and breathing rate are required;
sleep hours and notes are optional. The latest scan of a day is the one
used for that day.

Example:
  careahead add --hr 64 --br 14 --sleep 7.5`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var seedDays int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty store with demo history",
	Long: `Writes one synthetic noon scan for each of the days before today so the
baseline and dashboard have something to show. A store that already holds
scans is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	addCmd.Flags().IntVar(&addHeartRate, "hr", 0, "heart rate in bpm (required)")
	addCmd.Flags().IntVar(&addBreathingRate, "br", 0, "breathing rate in rpm (required)")
	addCmd.Flags().Float64Var(&addSleep, "sleep", -1, "hours slept the night before")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	addCmd.Flags().StringVar(&addAt, "at", "", "scan time (RFC 3339, default now)")
	rootCmd.AddCommand(addCmd)

	seedCmd.Flags().IntVar(&seedDays, "days", store.SeedDays, "number of days to generate")
	rootCmd.AddCommand(seedCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	at := now()
	if addAt != "" {
		parsed, err := time.Parse(time.RFC3339, addAt)
		if err != nil {
			return fmt.Errorf("invalid --at %q, want RFC 3339", addAt)
		}
		at = parsed
	}
	sample := vitals.Sample{
		Timestamp:     at,
		HeartRate:     addHeartRate,
		BreathingRate: addBreathingRate,
		Notes:         addNotes,
	}
	if addSleep >= 0 {
		sample.SleepHours = vitals.Hours(addSleep)
	}
	if err := sample.Validate(); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Add(cmd.Context(), sample)
	if err != nil {
		return err
	}
	cmd.Printf("Recorded scan #%d for %s.\n", id, at.Format(dayLayout))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rng := rand.New(rand.NewSource(now().UnixNano()))
	n, err := st.Seed(cmd.Context(), seedDays, now(), rng)
	if errors.Is(err, store.ErrNotEmpty) {
		cmd.Println("Store already has scans; nothing seeded.")
		return nil
	}
	if err != nil {
		return err
	}
	cmd.Printf("Seeded %s days of history into %s.\n", humanize.Comma(int64(n)), st.Path())
	return nil
}
