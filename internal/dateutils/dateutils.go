// Package dateutils converts mapping date patterns to Go layouts and parses
// statement dates into calendar days.
package dateutils

import (
	"regexp"
	"strings"
	"time"

	"fjacquet/csv-ingest/internal/parsererror"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutBrazilian = "02/01/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
)

// patternTokens maps the single-letter tokens used by mapping date formats
// (Y-m-d, d/m/Y, ...) to Go reference layout chunks. Day and month accept one
// or two digits, as statement exports are not consistent about padding.
var patternTokens = map[rune]string{
	'd': "2",
	'j': "2",
	'm': "1",
	'n': "1",
	'Y': "2006",
	'y': "06",
	'H': "15",
	'G': "15",
	'i': "04",
	's': "05",
	'M': "Jan",
	'F': "January",
	'D': "Mon",
	'l': "Monday",
}

var goLayoutMarker = regexp.MustCompile(`[0-9]`)

// ToGoLayout converts a mapping date pattern to a Go layout. Patterns that
// already contain reference digits (2006-01-02) are returned unchanged. A
// backslash escapes the next character.
func ToGoLayout(pattern string) string {
	if goLayoutMarker.MatchString(pattern) {
		return pattern
	}

	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if chunk, ok := patternTokens[r]; ok {
			b.WriteString(chunk)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseWithPatterns tries each pattern in order and returns the calendar day
// of the first match as UTC midnight, with the pattern that matched. When no
// pattern matches an *parsererror.InvalidDateError is returned.
func ParseWithPatterns(value string, patterns []string) (time.Time, string, error) {
	cleaned := CleanDateString(value)
	if cleaned != "" {
		for _, pattern := range patterns {
			t, err := time.Parse(ToGoLayout(pattern), cleaned)
			if err == nil {
				return ToCalendarDay(t), pattern, nil
			}
		}
	}
	return time.Time{}, "", &parsererror.InvalidDateError{Value: value, Formats: patterns}
}

// ToCalendarDay drops the time of day and the zone, keeping the date as read.
func ToCalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// ToBrazilianFormat formats a date as dd/mm/yyyy.
func ToBrazilianFormat(date time.Time) string {
	return date.Format(DateLayoutBrazilian)
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanDateString removes unwanted characters and normalizes a date string
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	return whitespace.ReplaceAllString(dateStr, " ")
}
