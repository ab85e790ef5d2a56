package shopping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"bozorlik/internal/catalog"
	"bozorlik/internal/shared"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LineItem is one purchasable entry of a category.
type LineItem struct {
	Name           string             `json:"name"`
	Quantity       string             `json:"quantity"`
	Purchased      bool               `json:"purchased"`
	PriceInfo      *catalog.PriceInfo `json:"price_info"`
	EstimatedPrice *int64             `json:"estimated_price"`
}

// PriceEstimator prices a line item. *catalog.Catalog implements it.
type PriceEstimator interface {
	Estimate(name, quantity, lang string) *catalog.PriceInfo
}

func newItem(name, quantity, lang string, est PriceEstimator) LineItem {
	item := LineItem{Name: name, Quantity: quantity}
	item.setPrice(estimate(est, name, quantity, lang))
	return item
}

func (i *LineItem) setPrice(info *catalog.PriceInfo) {
	i.PriceInfo = info
	i.EstimatedPrice = nil
	if info != nil {
		p := info.EstimatedPrice
		i.EstimatedPrice = &p
	}
}

func estimate(est PriceEstimator, name, quantity, lang string) *catalog.PriceInfo {
	if est == nil {
		return nil
	}
	return est.Estimate(name, quantity, lang)
}

// CategoryMap is an ordered category label to items mapping. The zero value
// is an empty map ready to use.
type CategoryMap struct {
	keys  []string
	items map[string][]LineItem
}

// NewCategoryMap returns an empty map.
func NewCategoryMap() *CategoryMap {
	return &CategoryMap{items: make(map[string][]LineItem)}
}

// Keys returns the category labels in insertion order.
func (m *CategoryMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Items returns the items of a category.
func (m *CategoryMap) Items(label string) []LineItem {
	if m == nil {
		return nil
	}
	return m.items[label]
}

// Has reports whether label is present.
func (m *CategoryMap) Has(label string) bool {
	if m == nil {
		return false
	}
	_, ok := m.items[label]
	return ok
}

// Len returns the number of categories.
func (m *CategoryMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// TotalItems counts items across all categories.
func (m *CategoryMap) TotalItems() int {
	n := 0
	for _, label := range m.Keys() {
		n += len(m.items[label])
	}
	return n
}

// Set replaces the items of label, appending the label if new.
func (m *CategoryMap) Set(label string, items []LineItem) {
	if m.items == nil {
		m.items = make(map[string][]LineItem)
	}
	if _, ok := m.items[label]; !ok {
		m.keys = append(m.keys, label)
	}
	m.items[label] = items
}

// Append adds an item to label, creating the category if needed.
func (m *CategoryMap) Append(label string, item LineItem) {
	m.Set(label, append(m.Items(label), item))
}

// Delete removes a category.
func (m *CategoryMap) Delete(label string) {
	if !m.Has(label) {
		return
	}
	delete(m.items, label)
	for i, k := range m.keys {
		if k == label {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Prune drops categories without items.
func (m *CategoryMap) Prune() {
	for _, label := range append([]string(nil), m.Keys()...) {
		if len(m.items[label]) == 0 {
			m.Delete(label)
		}
	}
}

// Clone copies the map and every category's item slice.
func (m *CategoryMap) Clone() *CategoryMap {
	out := NewCategoryMap()
	for _, label := range m.Keys() {
		out.Set(label, append([]LineItem(nil), m.items[label]...))
	}
	return out
}

// Equal compares labels, order and items.
func (m *CategoryMap) Equal(other *CategoryMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, label := range m.Keys() {
		if other.keys[i] != label {
			return false
		}
		if !reflect.DeepEqual(m.items[label], other.items[label]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the categories as an object in insertion order.
func (m *CategoryMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		items := m.items[label]
		if items == nil {
			items = []LineItem{}
		}
		v, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of label to items, keeping document order.
func (m *CategoryMap) UnmarshalJSON(data []byte) error {
	*m = CategoryMap{items: make(map[string][]LineItem)}
	return shared.DecodeOrderedObject(data, func(label string, raw json.RawMessage) error {
		var items []LineItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("invalid items for category %q: %w", label, err)
		}
		m.Set(label, items)
		return nil
	})
}

// fold lower-cases for case-insensitive matching of item names.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}
