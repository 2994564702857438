package domain

import (
	"strconv"
	"strings"
)

// VariantKey identifies a purchasable unit: one product in one color and one size.
// Build keys with NewVariantKey so equal values compare equal.
type VariantKey struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// NewVariantKey normalizes its parts: surrounding whitespace is dropped and numeric
// sizes are rendered canonically, so "9.0" and " 9" produce the same key as "9".
func NewVariantKey(productID, color, size string) VariantKey {
	return VariantKey{
		ProductID: strings.TrimSpace(productID),
		Color:     strings.TrimSpace(color),
		Size:      NormalizeSizeLabel(size),
	}
}

// NormalizeSizeLabel trims a size label and canonicalizes numeric labels.
func NormalizeSizeLabel(size string) string {
	size = strings.TrimSpace(size)
	if f, err := strconv.ParseFloat(size, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return size
}

// SizeSelection is the size a shopper picked. The UK label is part of the line identity.
type SizeSelection struct {
	UK string `json:"uk" validate:"required"`
	EU string `json:"eu,omitempty"`
}

// LineItem is one cart line.
type LineItem struct {
	ProductID     string        `json:"product_id" validate:"required"`
	Name          string        `json:"name"`
	Brand         string        `json:"brand"`
	Price         float64       `json:"price" validate:"gte=0"`
	Size          SizeSelection `json:"size"`
	Color         string        `json:"color"`
	Quantity      int           `json:"quantity"`
	Image         string        `json:"image"`
	OriginalPrice *float64      `json:"original_price,omitempty" validate:"omitempty,gte=0"`
}

// Key returns the variant identity of the line.
func (li LineItem) Key() VariantKey {
	return NewVariantKey(li.ProductID, li.Color, li.Size.UK)
}

// CartSummary holds the values derived from a cart's line items.
type CartSummary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
	Savings   float64 `json:"savings"`
	Lines     int     `json:"lines"`
}

// Summarize derives the summary from items alone; nothing is accumulated elsewhere.
func Summarize(items []LineItem) CartSummary {
	s := CartSummary{Lines: len(items)}
	for _, it := range items {
		s.ItemCount += it.Quantity
		s.Subtotal += it.Price * float64(it.Quantity)
		if it.OriginalPrice != nil {
			s.Savings += (*it.OriginalPrice - it.Price) * float64(it.Quantity)
		}
	}
	return s
}
