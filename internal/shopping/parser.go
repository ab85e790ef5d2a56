package shopping

import (
	"regexp"
	"strconv"
	"strings"

	"bozorlik/internal/catalog"
)

const (
	bullet        = "•"
	nameSeparator = "—"
)

// ≈2,800 сум / ≈18 500 so'm
var pricePattern = regexp.MustCompile(`≈([\d\s,]+)\s*(?:сум|so['’ʻ‘]?m)`)

// Parse reads formatted list text into a category map. Lines it does not
// understand are dropped.
func Parse(text, lang string, est PriceEstimator) *CategoryMap {
	cm := NewCategoryMap()
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if label, ok := parseHeader(line); ok {
			current = label
			continue
		}

		if current == "" || !strings.HasPrefix(line, bullet) {
			continue
		}
		if item, ok := parseItem(strings.TrimSpace(strings.TrimPrefix(line, bullet)), lang, est); ok {
			cm.Append(current, item)
		}
	}

	cm.Prune()
	return cm
}

func parseHeader(line string) (string, bool) {
	if !strings.Contains(line, ":") {
		return "", false
	}
	for _, e := range CategoryEmojis {
		if strings.HasPrefix(line, e) {
			label, _, _ := strings.Cut(line, ":")
			return strings.TrimSpace(label), true
		}
	}
	return "", false
}

func parseItem(text, lang string, est PriceEstimator) (LineItem, bool) {
	var name, rest string
	switch {
	case strings.Contains(text, nameSeparator):
		name, rest, _ = strings.Cut(text, nameSeparator)
	case strings.Contains(text, "("):
		name, rest, _ = strings.Cut(text, "(")
		rest = strings.ReplaceAll(rest, ")", "")
	default:
		name = text
	}
	name = strings.TrimSpace(name)
	rest = strings.TrimSpace(rest)
	if name == "" {
		return LineItem{}, false
	}

	textPrice, rest := extractPrice(rest)
	quantity := strings.Trim(rest, " ()")

	item := LineItem{Name: name, Quantity: quantity}
	item.PriceInfo = estimate(est, name, quantity, lang)
	switch {
	case textPrice != nil && *textPrice != 0:
		item.EstimatedPrice = textPrice
	case item.PriceInfo != nil && item.PriceInfo.EstimatedPrice != 0:
		p := item.PriceInfo.EstimatedPrice
		item.EstimatedPrice = &p
	default:
		item.EstimatedPrice = textPrice
	}
	return item, true
}

// extractPrice pulls a "≈<amount> <currency>" annotation, with the parentheses
// around it, out of rest. Prices above catalog.MaxEstimate are left in place.
func extractPrice(rest string) (*int64, string) {
	loc := pricePattern.FindStringSubmatchIndex(rest)
	if loc == nil {
		return nil, rest
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, rest[loc[2]:loc[3]])
	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || price > catalog.MaxEstimate {
		return nil, rest
	}

	before := strings.TrimRight(rest[:loc[0]], " ")
	after := strings.TrimLeft(rest[loc[1]:], " ")
	if strings.HasSuffix(before, "(") && strings.HasPrefix(after, ")") {
		before, after = before[:len(before)-1], after[1:]
	}
	return &price, strings.TrimSpace(strings.TrimSpace(before) + " " + strings.TrimSpace(after))
}
