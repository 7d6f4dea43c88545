package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var crcPrinter = message.NewPrinter(language.English)

// FormatCRC renders whole colones with thousands grouping, e.g. ₡40,000.
func FormatCRC(amount int64) string {
	if amount < 0 {
		// Magnitude as uint64 so math.MinInt64 does not overflow.
		return "-" + crcPrinter.Sprintf("₡%d", uint64(-(amount+1))+1)
	}
	return crcPrinter.Sprintf("₡%d", amount)
}

// ParseCRC reads a positive whole-colón amount typed by a person.
// The currency sign, spaces and grouping separators are ignored. A decimal
// part written with two digits after the last separator is rounded half-up.
//
//	ParseCRC("25000")    -> 25000
//	ParseCRC("₡25,000")  -> 25000
//	ParseCRC("25.000")   -> 25000
//	ParseCRC("1500.50")  -> 1501
func ParseCRC(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₡")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	var roundUp bool
	if i := strings.LastIndexAny(s, ".,"); i >= 0 && len(s)-i-1 == 2 {
		frac := s[i+1:]
		if !allDigits(frac) {
			return 0, ErrInvalidAmount
		}
		roundUp = frac[0] >= '5'
		s = s[:i]
	}
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	if !allDigits(s) {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if roundUp {
		v++
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LenientAmount coerces a decoded JSON value into whole colones.
// Numbers are truncated, numeric strings parsed, and anything else is 0.
// Negative values clamp to 0.
func LenientAmount(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampAmount(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return clampAmount(f)
		}
	}
	return 0
}

func clampAmount(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt64/2 {
		return 0
	}
	return int64(f)
}
