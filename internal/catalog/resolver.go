package catalog

import "strings"

// MatchKind tags the rule that resolved a product name.
type MatchKind int

const (
	MatchNone MatchKind = iota
	ExactID
	ExactSynonym
	SynonymSubstring
	NameSubstring
	QuoteSourceSubstring
)

func (k MatchKind) String() string {
	switch k {
	case ExactID:
		return "exact_id"
	case ExactSynonym:
		return "exact_synonym"
	case SynonymSubstring:
		return "synonym_substring"
	case NameSubstring:
		return "name_substring"
	case QuoteSourceSubstring:
		return "quote_source_substring"
	default:
		return "none"
	}
}

// Match is a resolved product.
type Match struct {
	Entry *Entry
	ID    string
	Kind  MatchKind
}

// Rule is one layer of the resolver. query is already normalized.
type Rule struct {
	Kind  MatchKind
	Match func(c *Catalog, query, lang string) (*Entry, bool)
}

// Rules lists the resolver layers in precedence order.
var Rules = []Rule{
	{Kind: ExactID, Match: (*Catalog).matchExactID},
	{Kind: ExactSynonym, Match: (*Catalog).matchExactSynonym},
	{Kind: SynonymSubstring, Match: (*Catalog).matchSynonymSubstring},
	{Kind: NameSubstring, Match: (*Catalog).matchNameSubstring},
	{Kind: QuoteSourceSubstring, Match: (*Catalog).matchQuoteSource},
}

// Resolve maps a free-text product name to a catalog entry, stopping at the
// first rule that matches.
func (c *Catalog) Resolve(name, lang string) (Match, bool) {
	query := normalize(name)
	if query == "" || c == nil {
		return Match{}, false
	}
	for _, rule := range Rules {
		if e, ok := rule.Match(c, query, lang); ok {
			return Match{Entry: e, ID: e.ID, Kind: rule.Kind}, true
		}
	}
	return Match{}, false
}

func (c *Catalog) matchExactID(query, _ string) (*Entry, bool) {
	e, ok := c.byLower[query]
	return e, ok
}

func (c *Catalog) matchExactSynonym(query, lang string) (*Entry, bool) {
	for _, s := range c.synonymTable(lang) {
		if normalize(s.Phrase) != query {
			continue
		}
		if e, ok := c.byID[s.ProductID]; ok {
			return e, true
		}
	}
	return nil, false
}

func (c *Catalog) matchSynonymSubstring(query, lang string) (*Entry, bool) {
	for _, s := range c.synonymTable(lang) {
		phrase := normalize(s.Phrase)
		if phrase == "" {
			continue
		}
		if !strings.Contains(phrase, query) && !strings.Contains(query, phrase) {
			continue
		}
		if e, ok := c.byID[s.ProductID]; ok {
			return e, true
		}
	}
	return nil, false
}

func (c *Catalog) matchNameSubstring(query, _ string) (*Entry, bool) {
	for _, e := range c.entries {
		name := normalize(e.DisplayName)
		if name == "" {
			continue
		}
		if strings.Contains(name, query) || strings.Contains(query, name) {
			return e, true
		}
	}
	return nil, false
}

func (c *Catalog) matchQuoteSource(query, _ string) (*Entry, bool) {
	for _, e := range c.entries {
		for _, q := range e.Quotes {
			source := normalize(q.Source)
			if source == "" {
				continue
			}
			if strings.Contains(source, query) {
				return e, true
			}
			for _, word := range strings.Fields(source) {
				if strings.Contains(query, word) {
					return e, true
				}
			}
		}
	}
	return nil, false
}
