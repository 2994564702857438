// Package stock holds the client-local per-variant inventory approximation.
package stock

import "storefront-service/internal/domain"

// DefaultQuantity applies to any variant without an explicit entry.
const DefaultQuantity = 10

// Entry is the available quantity of one variant.
type Entry struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	Color     string `json:"color" yaml:"color"`
	Size      string `json:"size" yaml:"size"`
	Quantity  int    `json:"quantity" yaml:"quantity"`
}

// Table resolves available stock per variant. It is immutable once built,
// so any number of goroutines may read it.
type Table struct {
	entries    map[domain.VariantKey]int
	defaultQty int
}

// NewTable builds a table. A negative default or quantity is stored as zero; a later
// entry for the same variant replaces an earlier one.
func NewTable(defaultQty int, entries ...Entry) *Table {
	t := &Table{
		entries:    make(map[domain.VariantKey]int, len(entries)),
		defaultQty: max(defaultQty, 0),
	}
	for _, e := range entries {
		t.entries[domain.NewVariantKey(e.ProductID, e.Color, e.Size)] = max(e.Quantity, 0)
	}
	return t
}

// StockFor returns the exact entry for the variant, else the default.
func (t *Table) StockFor(productID, color, size string) int {
	return t.StockForKey(domain.NewVariantKey(productID, color, size))
}

// StockForKey is StockFor for an already built key.
func (t *Table) StockForKey(key domain.VariantKey) int {
	if t == nil {
		return 0
	}
	if q, ok := t.entries[key]; ok {
		return q
	}
	return t.defaultQty
}

// Default returns the fallback quantity.
func (t *Table) Default() int { return t.defaultQty }

// Len returns the number of explicit entries.
func (t *Table) Len() int { return len(t.entries) }
