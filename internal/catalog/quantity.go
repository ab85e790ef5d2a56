package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var numeralPattern = regexp.MustCompile(`\d+\.?\d*`)

// Fraction words, checked in this order once no numeral is present.
// Three-quarters precedes quarter because every three-quarter phrase also
// contains a quarter marker. A text with both a half and a quarter marker
// resolves to half.
var fractionWords = []struct {
	value float64
	words []string
}{
	{1.5, []string{"полтора", "bir yarim", "бир ярим"}},
	{0.5, []string{"пол", "половин", "yarim", "ярим"}},
	{0.75, []string{"три четверти", "uch chorak", "уч чорак"}},
	{0.25, []string{"четверт", "chorak", "чорак"}},
}

// ExtractQuantity turns a free-text quantity into a multiplier. It never fails:
// anything it cannot read is 1.
func ExtractQuantity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 1.0
	}

	if m := numeralPattern.FindString(text); m != "" {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64); err == nil {
			return v
		}
		return 1.0
	}

	lower := strings.ToLower(text)
	for _, f := range fractionWords {
		for _, w := range f.words {
			if strings.Contains(lower, w) {
				return f.value
			}
		}
	}
	return 1.0
}
