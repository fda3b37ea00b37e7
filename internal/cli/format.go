// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// FormatPrice formats a catalog price in its native units.
// e.g., 250 -> "250p", 1234.5 -> "1,234.5p"
func FormatPrice(p float64) string {
	if math.IsInf(p, 0) || math.IsNaN(p) {
		return "-"
	}
	return humanize.CommafWithDigits(p, 2) + "p"
}

// FormatWeight formats grams, switching to kilograms from 1000 g.
// e.g., 300 -> "300 g", 1250 -> "1.25 kg"
func FormatWeight(grams float64) string {
	if grams >= 1000 {
		return strconv.FormatFloat(grams/1000, 'f', -1, 64) + " kg"
	}
	return humanize.CommafWithDigits(grams, 1) + " g"
}

// FormatCalories formats an energy total.
func FormatCalories(kcal float64) string {
	return humanize.Comma(int64(math.Round(kcal))) + " kcal"
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatAge formats how long ago t was, or "never" for the zero time.
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatBytes formats a byte size.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

// FormatDay returns the 1-based day label for a basket index.
func FormatDay(index int) string {
	return "Day " + strconv.Itoa(index+1)
}
