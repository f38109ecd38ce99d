package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// UntitledBill is the title of a bill without any usable line.
	UntitledBill = "Untitled Bill"

	citationScanLines = 10
	maxTitleRunes     = 100
	minMarkerRunes    = 10
	maxMarkerRunes    = 150
	truncationSuffix  = "..."
)

var (
	// citationPattern matches docket style prefixes such as "H.R. 1234", "S.J.Res. 7" or "SB 42".
	citationPattern = regexp.MustCompile(`(?i)^(?:H\.\s?R\.|S\.|H\.\s?J\.\s?Res\.|S\.\s?J\.\s?Res\.|H\.\s?Res\.|S\.\s?Res\.|HB|SB|AB)\s*\d+`) //nolint:lll // regexp
	markerPattern   = regexp.MustCompile(`(?i)\b(?:ACT|BILL)\b`)
)

// ExtractTitle derives a bill title from its content.
//
// In order of precedence the title is
//  1. a bill citation line within the first ten lines, truncated to 100 characters,
//  2. any line mentioning ACT or BILL that is between 10 and 150 characters long,
//  3. the first line, truncated to 100 characters with an ellipsis,
//  4. [UntitledBill].
func ExtractTitle(content string) string {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return UntitledBill
	}
	for _, line := range lines[:min(len(lines), citationScanLines)] {
		if citationPattern.MatchString(line) {
			return truncate(line, maxTitleRunes)
		}
	}
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if n >= minMarkerRunes && n <= maxMarkerRunes && markerPattern.MatchString(line) {
			return line
		}
	}
	first := lines[0]
	if utf8.RuneCountInString(first) > maxTitleRunes {
		return truncate(first, maxTitleRunes) + truncationSuffix
	}
	return first
}

// nonEmptyLines returns the trimmed non-empty lines.
func nonEmptyLines(content string) []string {
	var lines []string
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
