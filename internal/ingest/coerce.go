package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Numeric cells are read the way a browser's parseInt/parseFloat read them:
// the longest numeric prefix wins and trailing garbage is ignored, so
// "3 bd" is 3 and "1,200" is 1. Money and area cells are cleaned of '$',
// ',' and spaces first.

// parseFloatPrefix parses the leading decimal number of s.
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseIntPrefix parses the leading integer of s.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == start {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

var moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

func cleanNumber(s string) string {
	return moneyReplacer.Replace(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06",
	"2006/01/02",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// parseDate accepts the date formats county and MLS exports commonly use.
// Dates are interpreted in UTC.
func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// parseCoordinate reads a latitude or longitude. Zero means "not geocoded"
// in county files and is treated as absent.
func parseCoordinate(s string, limit float64) (float64, bool) {
	v, ok := parseFloatPrefix(s)
	if !ok || v == 0 || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}
