// Package catalog holds the static product price catalog and everything that
// reads it: the product resolver, the quantity extractor and the price estimator.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"bozorlik/internal/shared"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Quote is one observed price for a product.
type Quote struct {
	Price  *int64 `json:"price,omitempty"`
	Source string `json:"source,omitempty"`
}

// Entry is a canonical product record.
type Entry struct {
	ID          string  `json:"-"`
	DisplayName string  `json:"display_name"`
	Unit        string  `json:"unit"`
	Quotes      []Quote `json:"quotes"`
}

// Synonym maps a free-text phrase to an entry id.
type Synonym struct {
	Phrase    string
	ProductID string
}

// Catalog is immutable once built. Entries and synonyms keep the order of the
// source document because the resolver's substring layers return the first hit.
type Catalog struct {
	entries  []*Entry
	byID     map[string]*Entry
	byLower  map[string]*Entry
	synonyms map[string][]Synonym
}

// New builds a catalog from entries and per-language synonym tables.
func New(entries []*Entry, synonyms map[string][]Synonym) *Catalog {
	c := &Catalog{
		byID:     make(map[string]*Entry, len(entries)),
		byLower:  make(map[string]*Entry, len(entries)),
		synonyms: make(map[string][]Synonym, len(synonyms)),
	}
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.entries = append(c.entries, e)
		c.byID[e.ID] = e
		lower := normalize(e.ID)
		if _, taken := c.byLower[lower]; !taken {
			c.byLower[lower] = e
		}
	}
	for lang, table := range synonyms {
		c.synonyms[lang] = append([]Synonym(nil), table...)
	}
	return c
}

// Empty returns a catalog that never resolves anything.
func Empty() *Catalog {
	return New(nil, nil)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// SynonymCount returns the number of synonyms for a language.
func (c *Catalog) SynonymCount(lang string) int {
	return len(c.synonyms[lang])
}

// Entries returns the entries in source order.
func (c *Catalog) Entries() []*Entry {
	return c.entries
}

// Get returns the entry with exactly this id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

func (c *Catalog) synonymTable(lang string) []Synonym {
	if lang == shared.LangUZ {
		return c.synonyms[shared.LangUZ]
	}
	return c.synonyms[shared.LangRU]
}

type rawQuote struct {
	Price  *json.Number `json:"price"`
	Source string       `json:"source"`
}

type rawEntry struct {
	DisplayName string     `json:"display_name"`
	Unit        string     `json:"unit"`
	Quotes      []rawQuote `json:"quotes"`
}

// Parse decodes the catalog document:
//
//	{"items": {"<id>": {"display_name", "unit", "quotes": [{"price", "source"}]}},
//	 "synonyms": {"ru": {"<phrase>": "<id>"}, "uz": {...}}}
func Parse(data []byte) (*Catalog, error) {
	var entries []*Entry
	synonyms := make(map[string][]Synonym)

	err := shared.DecodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		switch key {
		case "items":
			return shared.DecodeOrderedObject(raw, func(id string, rawItem json.RawMessage) error {
				var re rawEntry
				if err := json.Unmarshal(rawItem, &re); err != nil {
					return fmt.Errorf("invalid item %q: %w", id, err)
				}
				entries = append(entries, &Entry{
					ID:          id,
					DisplayName: re.DisplayName,
					Unit:        re.Unit,
					Quotes:      convertQuotes(re.Quotes),
				})
				return nil
			})
		case "synonyms":
			return shared.DecodeOrderedObject(raw, func(lang string, rawTable json.RawMessage) error {
				return shared.DecodeOrderedObject(rawTable, func(phrase string, rawID json.RawMessage) error {
					var id string
					if err := json.Unmarshal(rawID, &id); err != nil {
						return nil // non-string targets are ignored
					}
					synonyms[lang] = append(synonyms[lang], Synonym{Phrase: phrase, ProductID: id})
					return nil
				})
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return New(entries, synonyms), nil
}

func convertQuotes(raw []rawQuote) []Quote {
	quotes := make([]Quote, 0, len(raw))
	for _, rq := range raw {
		q := Quote{Source: rq.Source}
		if rq.Price != nil {
			if f, err := rq.Price.Float64(); err == nil {
				p := int64(f)
				q.Price = &p
			}
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrEmpty never fails: a missing or broken catalog leaves the resolver
// permanently returning "not found".
func LoadOrEmpty(path string) *Catalog {
	c, err := Load(path)
	if err != nil {
		slog.Error("Failed to load price catalog, continuing without prices", "path", path, "error", err)
		return Empty()
	}
	slog.Info("Loaded price catalog",
		"path", path,
		"products", c.Len(),
		"synonyms", c.SynonymCount(shared.LangRU)+c.SynonymCount(shared.LangUZ))
	return c
}

// MarshalJSON writes the catalog back in its source document shape, preserving order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"items":{`)
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, e.ID, e); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"synonyms":{`)
	for i, lang := range []string{shared.LangRU, shared.LangUZ} {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, lang); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, s := range c.synonyms[lang] {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKeyValue(&buf, s.Phrase, s.ProductID); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

func writeKeyValue(buf *bytes.Buffer, key string, value any) error {
	if err := writeKey(buf, key); err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(v)
	return nil
}

// Registry publishes the current catalog. Reloads swap the whole table so
// concurrent readers never observe a partially loaded one.
type Registry struct {
	current atomic.Pointer[Catalog]
}

// NewRegistry creates a registry serving c.
func NewRegistry(c *Catalog) *Registry {
	if c == nil {
		c = Empty()
	}
	r := &Registry{}
	r.current.Store(c)
	return r
}

// Catalog returns the catalog currently published.
func (r *Registry) Catalog() *Catalog {
	return r.current.Load()
}

// Reload loads path and publishes it. On failure the previous catalog stays.
func (r *Registry) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	r.current.Store(c)
	return nil
}

func normalize(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
