package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bozorlik/internal/amount"

	"github.com/PuerkitoBio/goquery"
)

// ImportStats summarizes an HTML price import.
type ImportStats struct {
	Rows    int `json:"rows"`
	Matched int `json:"matched"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportHTML reads price tables (rows of product | price [| unit]) and returns
// a new catalog with one quote per row appended. Rows naming a product the
// resolver cannot place become new entries keyed by the lower-cased name.
// base is not modified.
func ImportHTML(r io.Reader, source, lang string, base *Catalog) (*Catalog, ImportStats, error) {
	var stats ImportStats
	if base == nil {
		base = Empty()
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to parse HTML: %w", err)
	}

	entries := make([]*Entry, 0, base.Len())
	byID := make(map[string]*Entry, base.Len())
	for _, e := range base.entries {
		cp := *e
		cp.Quotes = append([]Quote(nil), e.Quotes...)
		entries = append(entries, &cp)
		byID[cp.ID] = &cp
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		stats.Rows++

		name := strings.TrimSpace(cells.Eq(0).Text())
		price := int64(amount.Parse(cells.Eq(1).Text()))
		if name == "" || price <= 0 {
			stats.Skipped++
			return
		}
		unit := ""
		if cells.Length() > 2 {
			unit = strings.TrimSpace(cells.Eq(2).Text())
		}

		var target *Entry
		if m, ok := base.Resolve(name, lang); ok {
			target = byID[m.ID]
			stats.Matched++
		} else {
			id := normalize(name)
			if existing, ok := byID[id]; ok {
				target = existing
				stats.Matched++
			} else {
				target = &Entry{ID: id, DisplayName: name, Unit: unit}
				entries = append(entries, target)
				byID[id] = target
				stats.Created++
			}
		}
		if target.Unit == "" {
			target.Unit = unit
		}
		target.Quotes = append(target.Quotes, Quote{Price: &price, Source: source})
	})

	return New(entries, base.synonyms), stats, nil
}

// FetchHTML downloads a price page for ImportHTML. The caller closes the body.
func FetchHTML(ctx context.Context, url string) (io.ReadCloser, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
