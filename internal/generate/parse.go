package generate

import (
	"regexp"
	"strings"
)

var (
	thinkRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	htmlRe  = regexp.MustCompile(`(?s)<output-html>(.*?)</output-html>`)
)

// Parsed is the structured view of a model response.
type Parsed struct {
	Think string
	HTML  string
}

// ParseResponse extracts the first think block and the first output-html
// block that follows it. Missing blocks yield empty fields.
func ParseResponse(raw string) Parsed {
	var p Parsed
	rest := raw
	if loc := thinkRe.FindStringSubmatchIndex(raw); loc != nil {
		p.Think = strings.TrimSpace(raw[loc[2]:loc[3]])
		rest = raw[loc[1]:]
	}
	if m := htmlRe.FindStringSubmatch(rest); m != nil {
		p.HTML = strings.TrimSpace(m[1])
	}
	return p
}

// ExtractHTML parses raw and fails with ErrEmptyResult when it carries no
// HTML.
func ExtractHTML(raw string) (Parsed, error) {
	p := ParseResponse(raw)
	if p.HTML == "" {
		return p, ErrEmptyResult
	}
	return p, nil
}
