package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPoint renders a line value (total, handicap) in the canonical form used
// inside outcome values: trailing zeros trimmed but always one decimal place,
// so 2.5 -> "2.5", 2 -> "2.0", -0.25 -> "-0.25".
func FormatPoint(p float64) string {
	d := decimal.NewFromFloat(p)
	if d.IsZero() {
		return "0.0"
	}
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParsePoint parses a line value as written by a source ("2.5", "+1.5", "-1").
func ParsePoint(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// OverUnderValue builds "over 2.5" / "under 2.5".
func OverUnderValue(side string, point float64) string {
	return strings.ToLower(strings.TrimSpace(side)) + " " + FormatPoint(point)
}

// HandicapValue builds "home -0.5".
func HandicapValue(side string, point float64) string {
	return side + " " + FormatPoint(point)
}
