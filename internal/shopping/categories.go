package shopping

import (
	"strings"

	"bozorlik/internal/shared"
)

// Category is one entry of the fixed per-language category vocabulary.
type Category struct {
	Emoji    string
	Name     string
	Keywords []string
}

// Label is the map key used for the category, e.g. "🥕 Овощи".
func (c Category) Label() string {
	return c.Emoji + " " + c.Name
}

// CategoryEmojis marks category headers in formatted lists.
var CategoryEmojis = []string{"🥕", "🍎", "🥛", "🍖", "📦", "🥤", "🧴", "📝"}

var vocabulary = map[string][]Category{
	shared.LangRU: {
		{"🥕", "Овощи", []string{"овощ", "карто", "лук", "морков", "помидор", "огур", "капуст", "сабзавот"}},
		{"🍎", "Фрукты", []string{"фрукт", "яблок", "банан", "апельсин", "мандарин", "виноград", "мева"}},
		{"🥛", "Молочные продукты", []string{"молок", "сыр", "творог", "йогурт", "кефир", "сметан", "масло", "сут"}},
		{"🍖", "Мясо и рыба", []string{"мяс", "говядин", "куриц", "рыб", "колбас", "сосиск", "филе", "go'sht", "baliq"}},
		{"📦", "Бакалея", []string{"макарон", "рис", "гречк", "мука", "сахар", "соль", "масло растительн", "консерв"}},
		{"🥤", "Напитки", []string{"напиток", "вода", "сок", "чай", "кофе", "лимонад", "газировк", "ichimlik"}},
		{"🧴", "Химия и быт", []string{"мыло", "шампунь", "порошок", "паста", "гель", "салфетк", "бумаг", "kukun", "shampun"}},
		{"📝", "Другое", nil},
	},
	shared.LangUZ: {
		{"🥕", "Sabzavotlar", []string{"sabzavot", "kartoshka", "piyoz", "sabzi", "pomidor", "bodring", "karam"}},
		{"🍎", "Mevalar", []string{"meva", "olma", "banan", "apelsin", "mandarin", "uzum"}},
		{"🥛", "Sut mahsulotlari", []string{"sut", "pishloq", "tvorog", "yogurt", "qatiq", "qaymoq", "yog'"}},
		{"🍖", "Go'sht va baliq", []string{"go'sht", "mol", "tovuq", "baliq", "kolbasa", "sosiska", "file"}},
		{"📦", "Boshqa mahsulotlar", []string{"makaron", "guruch", "grechka", "un", "shakar", "tuz", "yog'", "konserva"}},
		{"🥤", "Ichimliklar", []string{"ichimlik", "suv", "sharbat", "choy", "qahva", "limonad", "gazli"}},
		{"🧴", "Kimyoviy mahsulotlar", []string{"sovun", "shampun", "kukun", "pasta", "gel", "salfetka", "qog'oz"}},
		{"📝", "Boshqalar", nil},
	},
}

var keywordsByLabel = func() map[string][]string {
	m := make(map[string][]string)
	for _, cats := range vocabulary {
		for _, c := range cats {
			m[c.Label()] = c.Keywords
		}
	}
	return m
}()

// Categories returns the vocabulary of lang, Russian for unknown tags.
func Categories(lang string) []Category {
	if lang == shared.LangUZ {
		return vocabulary[shared.LangUZ]
	}
	return vocabulary[shared.LangRU]
}

// OtherCategory is the catch-all category label of lang.
func OtherCategory(lang string) string {
	cats := Categories(lang)
	return cats[len(cats)-1].Label()
}

// Keywords returns the classifier keywords of a category label in either
// language. Unknown labels have none.
func Keywords(label string) []string {
	return keywordsByLabel[label]
}

// HasCategoryEmoji reports whether text looks like a formatted list.
func HasCategoryEmoji(text string) bool {
	for _, e := range CategoryEmojis {
		if strings.Contains(text, e) {
			return true
		}
	}
	return false
}

// classify picks the first existing category whose keywords occur in name.
func classify(cm *CategoryMap, name string) (string, bool) {
	lower := fold(name)
	for _, label := range cm.Keys() {
		for _, kw := range Keywords(label) {
			if strings.Contains(lower, kw) {
				return label, true
			}
		}
	}
	return "", false
}
