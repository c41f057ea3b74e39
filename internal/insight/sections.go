package insight

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultDisclaimer replaces a missing or empty disclaimer.
const DefaultDisclaimer = "Not medical advice."

// Placeholder sentences shown when a narrative section comes back empty.
const (
	PlaceholderIntroduction  = "Today's scan has been recorded, but a detailed insight could not be generated this time."
	PlaceholderHeartRate     = "Your heart rate reading is saved and will be compared with your own baseline as more days accumulate."
	PlaceholderBreathingRate = "Your breathing rate reading is saved and will be compared with your own baseline as more days accumulate."
	PlaceholderFinalThoughts = "Scanning at a similar time each day makes your trends easier to read."
)

// Sections is the render-ready result of one generation request. After
// Normalize every field is non-empty.
type Sections struct {
	Introduction            string `json:"introduction"`
	HeartRateDiscussion     string `json:"heartRateDiscussion"`
	BreathingRateDiscussion string `json:"breathingRateDiscussion"`
	FinalThoughts           string `json:"finalThoughts"`
	Disclaimer              string `json:"disclaimer"`
}

// Normalize trims every field and substitutes the fixed placeholders for
// anything left empty.
func (s Sections) Normalize() Sections {
	return Sections{
		Introduction:            orDefault(s.Introduction, PlaceholderIntroduction),
		HeartRateDiscussion:     orDefault(s.HeartRateDiscussion, PlaceholderHeartRate),
		BreathingRateDiscussion: orDefault(s.BreathingRateDiscussion, PlaceholderBreathingRate),
		FinalThoughts:           orDefault(s.FinalThoughts, PlaceholderFinalThoughts),
		Disclaimer:              orDefault(s.Disclaimer, DefaultDisclaimer),
	}
}

// Complete reports whether every field carries text.
func (s Sections) Complete() bool {
	for _, field := range s.fields() {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// MarshalJSON emits the canonical five-string object that Parse accepts
// back unchanged.
func (s Sections) MarshalJSON() ([]byte, error) {
	type plain Sections
	return json.Marshal(plain(s))
}

func (s Sections) fields() []string {
	return []string{s.Introduction, s.HeartRateDiscussion, s.BreathingRateDiscussion, s.FinalThoughts, s.Disclaimer}
}

// Block is one titled, paragraph-split section in display order.
type Block struct {
	Title      string
	Paragraphs []string
}

// Blocks lays the sections out for rendering. The disclaimer closes the
// final-thoughts block.
func (s Sections) Blocks() []Block {
	final := ParagraphsOf(s.FinalThoughts)
	if disclaimer := strings.TrimSpace(s.Disclaimer); disclaimer != "" {
		final = append(final, disclaimer)
	}
	return []Block{
		{Title: "Introduction", Paragraphs: ParagraphsOf(s.Introduction)},
		{Title: "Heart Rate", Paragraphs: ParagraphsOf(s.HeartRateDiscussion)},
		{Title: "Breathing Rate", Paragraphs: ParagraphsOf(s.BreathingRateDiscussion)},
		{Title: "Final Thoughts", Paragraphs: final},
	}
}

var blankLines = regexp.MustCompile(`\n[ \t\r]*\n(?:[ \t\r]*\n)*`)

// ParagraphsOf splits a field on runs of blank lines, trimming each
// paragraph and dropping empty ones.
func ParagraphsOf(field string) []string {
	field = strings.ReplaceAll(field, "\r\n", "\n")
	var paragraphs []string
	for _, part := range blankLines.Split(field, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		paragraphs = append(paragraphs, part)
	}
	return paragraphs
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
