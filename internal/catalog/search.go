package catalog

import "strings"

// MaxSearchResults caps Search.
const MaxSearchResults = 10

// SearchResult is one price lookup hit.
type SearchResult struct {
	ProductID   string     `json:"product_id"`
	DisplayName string     `json:"display_name"`
	Synonym     string     `json:"synonym,omitempty"`
	PriceInfo   *PriceInfo `json:"price_info"`
}

// Search finds priced entries whose id or display name contains query, then
// priced entries reached through synonyms of lang containing query. Each entry
// appears once and entries without a price do not count toward limit.
func (c *Catalog) Search(query, lang string, limit int) []SearchResult {
	q := normalize(query)
	if q == "" || c == nil {
		return nil
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	var results []SearchResult
	seen := make(map[string]bool)
	add := func(e *Entry, synonym string) bool {
		if seen[e.ID] {
			return len(results) < limit
		}
		seen[e.ID] = true
		lookup := e.ID
		if synonym != "" {
			lookup = synonym
		}
		info := c.Estimate(lookup, "", lang)
		if info == nil {
			return true
		}
		results = append(results, SearchResult{
			ProductID:   e.ID,
			DisplayName: e.DisplayName,
			Synonym:     synonym,
			PriceInfo:   info,
		})
		return len(results) < limit
	}

	for _, e := range c.entries {
		if strings.Contains(normalize(e.ID), q) || strings.Contains(normalize(e.DisplayName), q) {
			if !add(e, "") {
				return results
			}
		}
	}
	for _, s := range c.synonymTable(lang) {
		if !strings.Contains(normalize(s.Phrase), q) {
			continue
		}
		e, ok := c.byID[s.ProductID]
		if !ok {
			continue
		}
		if !add(e, s.Phrase) {
			return results
		}
	}
	return results
}
