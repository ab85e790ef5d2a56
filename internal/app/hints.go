package app

import (
	"fmt"
	"strings"
	"unicode"

	"bozorlik/internal/amount"
	"bozorlik/internal/assistant"
	"bozorlik/internal/catalog"
	"bozorlik/internal/shared"
)

const maxPriceHints = 20

// chunk boundaries in free-form requests
var hintSeparators = strings.NewReplacer(
	"\n", ",", ";", ",", " и ", ",", " va ", ",", " ва ", ",",
)

// PriceHints returns a hint function that lists catalog prices for the
// products mentioned in a request.
func PriceHints(catalogs *catalog.Registry) assistant.HintFunc {
	return func(text, lang string) []string {
		cat := catalogs.Catalog()
		if cat.Len() == 0 {
			return nil
		}
		currency := "сум"
		if lang == shared.LangUZ {
			currency = "so'm"
		}

		var hints []string
		seen := make(map[string]bool)
		for _, chunk := range strings.Split(hintSeparators.Replace(text), ",") {
			name := productWords(chunk)
			if name == "" {
				continue
			}
			info := cat.Estimate(name, "", lang)
			if info == nil || seen[info.ProductID] {
				continue
			}
			seen[info.ProductID] = true

			display := info.ProductID
			if e, ok := cat.Get(info.ProductID); ok && e.DisplayName != "" {
				display = e.DisplayName
			}
			hint := fmt.Sprintf("%s — %s %s", display, amount.Group(info.Price), currency)
			if info.Unit != "" {
				hint += "/" + info.Unit
			}
			hints = append(hints, hint)
			if len(hints) == maxPriceHints {
				break
			}
		}
		return hints
	}
}

// productWords drops words containing digits, e.g. "2кг".
func productWords(chunk string) string {
	words := strings.FieldsFunc(chunk, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '-')
	})
	kept := words[:0]
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsDigit) < 0 {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
