package domain

// Gender is the top-level customer segment a product is merchandised under.
type Gender string

const (
	GenderMen   Gender = "men"
	GenderWomen Gender = "women"
	GenderKids  Gender = "kids"
)

// Segments lists every known segment in display order.
var Segments = []Gender{GenderMen, GenderWomen, GenderKids}

// ParseGender maps loose input ("Men", "male", "women ") onto a segment.
// The empty Gender means "all segments".
func ParseGender(s string) (Gender, bool) {
	switch normalizeToken(s) {
	case "":
		return "", true
	case "men", "man", "male", "m":
		return GenderMen, true
	case "women", "woman", "female", "f", "w":
		return GenderWomen, true
	case "kids", "kid", "children", "boys", "girls":
		return GenderKids, true
	}
	return "", false
}

// SizeChartType is the sizing standard a size label is expressed in.
type SizeChartType string

const (
	ChartIND SizeChartType = "IND"
	ChartUK  SizeChartType = "UK"
	ChartEU  SizeChartType = "EU"
	ChartUS  SizeChartType = "US"
)

// ParseSizeChartType returns the chart type for s, or false when s names no known system.
func ParseSizeChartType(s string) (SizeChartType, bool) {
	switch SizeChartType(upperToken(s)) {
	case ChartIND, "INDIA", "IN":
		return ChartIND, true
	case ChartUK:
		return ChartUK, true
	case ChartEU, "EUR":
		return ChartEU, true
	case ChartUS:
		return ChartUS, true
	}
	return "", false
}

// SizeOption is one purchasable size of a product, expressed in the display system.
// OriginalLabel and OriginalChartType keep the source values so a re-conversion is lossless.
type SizeOption struct {
	Label             string        `json:"label"`
	OriginalLabel     string        `json:"original_label"`
	OriginalChartType SizeChartType `json:"original_chart_type"`
	InStock           bool          `json:"in_stock"`
	Stock             *int          `json:"stock,omitempty"` // nil when the source did not say
	VariantID         string        `json:"variant_id,omitempty"`
}

// ColorVariant is a compact reference to a sibling in the same catalogue group.
type ColorVariant struct {
	ID       string  `json:"id"`
	Slug     string  `json:"slug"`
	Color    string  `json:"color"`
	ColorHex string  `json:"color_hex,omitempty"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	InStock  bool    `json:"in_stock"`
}

// Product is the canonical product shape every source is normalized into.
type Product struct {
	ID              string         `json:"id"`
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	Brand           string         `json:"brand"`
	Price           float64        `json:"price"`
	MRP             *float64       `json:"mrp"` // only set when strictly greater than Price
	Image           string         `json:"image"`
	Images          []string       `json:"images"`
	Sizes           []SizeOption   `json:"sizes"`
	Color           string         `json:"color,omitempty"`
	ColorHex        string         `json:"color_hex,omitempty"`
	CatalogueID     *string        `json:"catalogue_id,omitempty"`
	CategoryID      string         `json:"category_id,omitempty"`
	Rating          float64        `json:"rating"`
	ReviewCount     int            `json:"review_count"`
	Gender          Gender         `json:"gender,omitempty"`
	Tags            []string       `json:"tags"`
	Flags                          // derived from Tags, never set independently
	InStock         bool           `json:"in_stock"`
	DiscountPercent int            `json:"discount_percent"`
	Description     string         `json:"description,omitempty"`
	ColorVariants   []ColorVariant `json:"color_variants"`

	// Source points back at the record this product was normalized from.
	Source any `json:"-"`
}

// Variant returns the compact sibling reference for p.
func (p Product) Variant() ColorVariant {
	return ColorVariant{
		ID:       p.ID,
		Slug:     p.Slug,
		Color:    p.Color,
		ColorHex: p.ColorHex,
		Image:    p.Image,
		Price:    p.Price,
		InStock:  p.InStock,
	}
}

// HasTag reports whether tag is present on p.
func (p Product) HasTag(tag string) bool {
	return containsTag(p.Tags, tag)
}
