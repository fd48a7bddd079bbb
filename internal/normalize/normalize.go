// Package normalize turns locale-ambiguous price text into numbers.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MinPrice is the smallest amount accepted as a real price.
const MinPrice = 0.01

// Price parses raw price text into a positive amount. It handles both
// the US "1,234.56" and EU "1.234,56" conventions: when both separators
// are present, the one occurring last is the decimal point. A lone
// comma is treated as a decimal separator. Returns false for text with
// no parseable, strictly positive number.
func Price(raw string) (float64, bool) {
	cleaned := clean(raw)
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')

	var normalized string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			normalized = strings.ReplaceAll(cleaned, ".", "")
			normalized = strings.Replace(normalized, ",", ".", 1)
		} else {
			normalized = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		normalized = strings.Replace(cleaned, ",", ".", 1)
	default:
		normalized = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) || value < MinPrice {
		return 0, false
	}
	return value, true
}

// Currency detects the currency code from price text. Symbols are
// checked in fixed priority order; EUR is the default when no symbol
// matches or the text is empty. No locale inference.
func Currency(text string) string {
	switch {
	case strings.ContainsRune(text, '$'):
		return "USD"
	case strings.ContainsRune(text, '£'):
		return "GBP"
	case strings.ContainsRune(text, '€'):
		return "EUR"
	default:
		return "EUR"
	}
}

func clean(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
