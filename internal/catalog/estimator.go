package catalog

import "math"

// EstimateSource labels every estimate.
const EstimateSource = "average price"

// MaxEstimate bounds a single estimated price. Larger products of price and
// quantity are treated as unpriceable so list totals cannot overflow.
const MaxEstimate = 1e15

// PriceInfo is a priced catalog match for one line item.
type PriceInfo struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	Price          int64   `json:"price"`
	EstimatedPrice int64   `json:"estimated_price"`
	Unit           string  `json:"unit"`
	Quantity       float64 `json:"quantity_multiplier"`
	Available      bool    `json:"available"`
	Source         string  `json:"source"`
}

// Estimate prices name at the given quantity. It returns nil when the name does
// not resolve, the entry carries no priced quotes, or the estimate is out of
// range.
func (c *Catalog) Estimate(name, quantity, lang string) *PriceInfo {
	m, ok := c.Resolve(name, lang)
	if !ok {
		return nil
	}
	avg, ok := averagePrice(m.Entry.Quotes)
	if !ok {
		return nil
	}
	multiplier := ExtractQuantity(quantity)
	estimate := float64(avg) * multiplier
	if math.IsNaN(estimate) || math.Abs(estimate) > MaxEstimate {
		return nil
	}
	return &PriceInfo{
		ProductID:      m.ID,
		ProductName:    name,
		Price:          avg,
		EstimatedPrice: int64(estimate),
		Unit:           m.Entry.Unit,
		Quantity:       multiplier,
		Available:      true,
		Source:         EstimateSource,
	}
}

// averagePrice is the mean of the priced quotes, truncated toward zero.
func averagePrice(quotes []Quote) (int64, bool) {
	var sum, n int64
	for _, q := range quotes {
		if q.Price == nil {
			continue
		}
		sum += *q.Price
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / n, true
}
