package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// LangReport is one language bucket of a risk report.
type LangReport struct {
	CriticalRisks         []string `json:"critical_risks"`
	MediumRisks           []string `json:"medium_risks"`
	LowRisks              []string `json:"low_risks"`
	Categories            []string `json:"categories"`
	FunctionalDescription string   `json:"functional_description"`
	OperatingInstructions string   `json:"operating_instructions"`
}

// Report maps language codes to their buckets.
type Report map[string]LangReport

// Vocabulary lists existing labels the model should prefer.
type Vocabulary struct {
	CriticalRisks []string
	MediumRisks   []string
	LowRisks      []string
	Categories    []string
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// NormalizeReport prepares raw model output for strict decoding. It drops a
// think block, unwraps the first markdown code fence, and trims to the
// outermost braces. It never edits the JSON itself.
func NormalizeReport(raw string) string {
	s := thinkRe.ReplaceAllString(raw, "")
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// ParseReport decodes a risk report after normalization. Output that is
// not a JSON object of language buckets fails with ErrMalformedReport.
func ParseReport(raw string) (Report, error) {
	s := NormalizeReport(raw)
	if s == "" {
		return nil, ErrEmptyResult
	}
	var r Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if len(r) == 0 {
		return nil, fmt.Errorf("%w: no language buckets", ErrMalformedReport)
	}
	return r, nil
}

// quoteList renders labels as a comma separated list of quoted strings.
func quoteList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}
