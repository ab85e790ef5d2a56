// Package amount reads spend amounts typed by users ("10к", "2.5кк",
// "1 500 000 сум", "3 million") and renders them back.
package amount

import (
	"math"
	"regexp"
	"strings"

	"bozorlik/internal/shared"

	"github.com/shopspring/decimal"
)

var numberPattern = regexp.MustCompile(`\d[\d.,]*`)

// MaxAmount is the largest amount Parse accepts. Anything above it is treated
// as no amount, which keeps sums of many amounts finite.
const MaxAmount = 1e15

var maxAmount = decimal.NewFromFloat(MaxAmount)

// Magnitude words, longest prefixes first so "кк" is not read as "к".
var magnitudes = []struct {
	prefix string
	factor int64
}{
	{"миллиард", 1_000_000_000},
	{"млрд", 1_000_000_000},
	{"milliard", 1_000_000_000},
	{"миллион", 1_000_000},
	{"million", 1_000_000},
	{"млн", 1_000_000},
	{"mln", 1_000_000},
	{"кк", 1_000_000},
	{"kk", 1_000_000},
	{"тысяч", 1_000},
	{"тыс", 1_000},
	{"ming", 1_000},
	{"к", 1_000},
	{"k", 1_000},
}

// Parse returns the amount in text, or 0 when there is none.
func Parse(text string) float64 {
	clean := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if clean == "" {
		return 0
	}

	loc := numberPattern.FindStringIndex(clean)
	if loc == nil {
		return 0
	}
	n, ok := parseNumber(clean[loc[0]:loc[1]])
	if !ok {
		return 0
	}

	rest := clean[loc[1]:]
	for _, m := range magnitudes {
		if strings.HasPrefix(rest, m.prefix) {
			n = n.Mul(decimal.NewFromInt(m.factor))
			break
		}
	}
	if n.GreaterThan(maxAmount) {
		return 0
	}
	return n.InexactFloat64()
}

// parseNumber reads a numeral where a comma followed by exactly three digits
// groups thousands and any other single comma is a decimal separator.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimRight(s, ".,")
	if strings.Contains(s, ",") {
		intPart, frac, hasDot := strings.Cut(s, ".")
		groups := strings.Split(intPart, ",")
		thousands := true
		for _, g := range groups[1:] {
			if len(g) != 3 {
				thousands = false
				break
			}
		}
		switch {
		case thousands:
			s = strings.Join(groups, "")
			if hasDot {
				s += "." + frac
			}
		case len(groups) == 2 && !hasDot:
			s = groups[0] + "." + groups[1]
		default:
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Format renders an amount rounded to whole sums with space-grouped thousands,
// e.g. "10 000 сум". NaN renders as 0 and values beyond int64 are clamped.
func Format(v float64, lang string) string {
	currency := "сум"
	if lang == shared.LangUZ {
		currency = "so'm"
	}
	return Group(wholeSums(v)) + " " + currency
}

func wholeSums(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64 + 1
	}
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// Group writes n with a space between thousands.
func Group(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := decimal.NewFromInt(n).String()
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
