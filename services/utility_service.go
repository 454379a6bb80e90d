package services

import (
	"regexp"
	"strings"
)

// UtilityService provides text cleaning and date normalization for scraped content
type UtilityService struct{}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{}
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Date formats observed across government portals, tried in order.
var dateFormats = []*regexp.Regexp{
	regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`), // dd/mm/yyyy
	regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), // dd-mm-yyyy
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`), // yyyy-mm-dd
}

// CleanText collapses runs of whitespace to single spaces and trims the ends
func (s *UtilityService) CleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// truncateRunes shortens s to at most max characters without splitting a
// multibyte rune.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// FormatDate normalizes a scraped date string to yyyy-mm-dd where possible.
// Input that matches none of the known formats is returned cleaned but
// otherwise unchanged, so callers must treat the result as best-effort.
func (s *UtilityService) FormatDate(dateStr string) string {
	cleanDate := s.CleanText(dateStr)

	for i, format := range dateFormats {
		match := format.FindStringSubmatch(cleanDate)
		if match == nil {
			continue
		}
		if i == 2 {
			// Already year-month-day
			return match[1] + "-" + match[2] + "-" + match[3]
		}
		return match[3] + "-" + match[2] + "-" + match[1]
	}

	return cleanDate
}
