package insight

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Tier records which extraction strategy produced a result.
type Tier int

const (
	// TierStrict parsed the outermost {...} span as-is.
	TierStrict Tier = iota + 1
	// TierSanitized parsed it after the textual repairs in Sanitize.
	TierSanitized
	// TierScraped pulled individual fields out with per-field patterns.
	TierScraped
	// TierRaw found no fields; the whole response became the introduction.
	TierRaw
	// TierPlain split a plain-prose response by paragraph.
	TierPlain
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierSanitized:
		return "sanitized"
	case TierScraped:
		return "scraped"
	case TierRaw:
		return "raw"
	case TierPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// Result is a parsed response plus the tier that produced it.
type Result struct {
	Sections Sections
	Tier     Tier
}

// Parse turns raw model output into normalized sections. It never fails.
func Parse(raw string) Sections {
	return ParseDetailed(raw).Sections
}

// ParseDetailed is Parse with the winning tier reported.
func ParseDetailed(raw string) Result {
	if sections, ok := parseStructured(raw); ok {
		return Result{Sections: sections.Normalize(), Tier: TierStrict}
	}
	if sections, ok := parseStructured(Sanitize(raw)); ok {
		return Result{Sections: sections.Normalize(), Tier: TierSanitized}
	}
	sections, found := scrapeFields(raw)
	tier := TierScraped
	if !found {
		tier = TierRaw
	}
	if strings.TrimSpace(sections.Introduction) == "" {
		sections.Introduction = raw
	}
	return Result{Sections: sections.Normalize(), Tier: tier}
}

// ParseResponse parses raw according to the format its prompt requested.
func ParseResponse(raw string, format Format) Result {
	if format == FormatPlain {
		return ParsePlain(raw)
	}
	return ParseDetailed(raw)
}

// ParsePlain maps a plain-prose response onto sections: the first three
// paragraphs are the introduction and the two metric discussions, the rest
// are final thoughts. A closing paragraph that is only the disclaimer
// becomes the disclaimer.
func ParsePlain(raw string) Result {
	paragraphs := ParagraphsOf(raw)
	var s Sections
	if n := len(paragraphs); n > 1 && isDisclaimer(paragraphs[n-1]) {
		s.Disclaimer = paragraphs[n-1]
		paragraphs = paragraphs[:n-1]
	}
	slots := []*string{&s.Introduction, &s.HeartRateDiscussion, &s.BreathingRateDiscussion}
	for i, p := range paragraphs {
		if i < len(slots) {
			*slots[i] = p
			continue
		}
		if s.FinalThoughts != "" {
			s.FinalThoughts += "\n\n"
		}
		s.FinalThoughts += p
	}
	return Result{Sections: s.Normalize(), Tier: TierPlain}
}

func isDisclaimer(p string) bool {
	return len(p) <= 2*len(DefaultDisclaimer) && strings.Contains(strings.ToLower(p), "medical advice")
}

// narrative accepts either a single string or an ordered list of strings;
// list entries are joined with a blank line.
type narrative string

func (n *narrative) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*n = ""
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*n = narrative(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("narrative must be a string or list of strings: %w", err)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts = append(parts, item)
	}
	*n = narrative(strings.Join(parts, "\n\n"))
	return nil
}

// payload fields are pointers so a key that is present but empty still
// counts as a known field.
type payload struct {
	Introduction            *narrative `json:"introduction"`
	HeartRateDiscussion     *narrative `json:"heartRateDiscussion"`
	BreathingRateDiscussion *narrative `json:"breathingRateDiscussion"`
	FinalThoughts           *narrative `json:"finalThoughts"`
	Disclaimer              *narrative `json:"disclaimer"`
}

func (p payload) known() bool {
	for _, field := range []*narrative{p.Introduction, p.HeartRateDiscussion, p.BreathingRateDiscussion, p.FinalThoughts, p.Disclaimer} {
		if field != nil {
			return true
		}
	}
	return false
}

func (p payload) sections() Sections {
	text := func(n *narrative) string {
		if n == nil {
			return ""
		}
		return string(*n)
	}
	return Sections{
		Introduction:            text(p.Introduction),
		HeartRateDiscussion:     text(p.HeartRateDiscussion),
		BreathingRateDiscussion: text(p.BreathingRateDiscussion),
		FinalThoughts:           text(p.FinalThoughts),
		Disclaimer:              text(p.Disclaimer),
	}
}

// parseStructured decodes the span between the first '{' and the last '}'.
// An object that decodes but carries none of the known keys does not count;
// known keys with empty values do, and are filled in by normalization.
func parseStructured(raw string) (Sections, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Sections{}, false
	}
	var p payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return Sections{}, false
	}
	if !p.known() {
		return Sections{}, false
	}
	return p.sections(), true
}

var (
	codeFence     = regexp.MustCompile("```[A-Za-z]*")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	)
)

// Sanitize applies the repairs tried before falling back to field scraping:
// code fences are stripped, typographic quotes become ASCII and trailing
// commas before a closing brace or bracket are removed.
func Sanitize(raw string) string {
	out := codeFence.ReplaceAllString(raw, "")
	out = quoteReplacer.Replace(out)
	out = trailingComma.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

const jsonString = `"((?:[^"\\]|\\.)*)"`

type fieldPattern struct {
	str  *regexp.Regexp
	list *regexp.Regexp
}

var (
	listItem      = regexp.MustCompile(jsonString)
	fieldPatterns = map[string]fieldPattern{}
)

func init() {
	for _, name := range []string{"introduction", "heartRateDiscussion", "breathingRateDiscussion", "finalThoughts", "disclaimer"} {
		fieldPatterns[name] = fieldPattern{
			str:  regexp.MustCompile(`"` + name + `"\s*:\s*` + jsonString),
			list: regexp.MustCompile(`"` + name + `"\s*:\s*\[((?:\s*` + jsonString + `\s*,?)*)`),
		}
	}
}

// scrapeFields pulls whatever known fields it can find out of text that is
// not valid JSON, including lists cut off by a truncated response.
func scrapeFields(raw string) (Sections, bool) {
	found := false
	get := func(name string) string {
		value, ok := scrapeField(raw, fieldPatterns[name])
		if ok {
			found = true
		}
		return value
	}
	sections := Sections{
		Introduction:            get("introduction"),
		HeartRateDiscussion:     get("heartRateDiscussion"),
		BreathingRateDiscussion: get("breathingRateDiscussion"),
		FinalThoughts:           get("finalThoughts"),
		Disclaimer:              get("disclaimer"),
	}
	return sections, found
}

func scrapeField(raw string, pattern fieldPattern) (string, bool) {
	if m := pattern.str.FindStringSubmatch(raw); m != nil {
		return unescape(m[1]), true
	}
	m := pattern.list.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	var parts []string
	for _, item := range listItem.FindAllStringSubmatch(m[1], -1) {
		if text := strings.TrimSpace(unescape(item[1])); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

var escapeReplacer = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "", `\"`, `"`, `\\`, `\`, `\/`, "/")

func unescape(body string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &decoded); err == nil {
		return decoded
	}
	return escapeReplacer.Replace(body)
}
