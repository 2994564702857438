package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"storefront-service/internal/domain"
)

// Record is a raw product from one of the two sources. It is a closed union of
// RemoteRecord and MockRecord.
type Record interface {
	isRecord()
}

// RemoteRecord is a product as returned by the remote API. Any field may be absent.
type RemoteRecord struct {
	Raw map[string]any
}

func (RemoteRecord) isRecord() {}

// MockRecord is a product from the local catalog file.
type MockRecord struct {
	ID              string              `yaml:"id"`
	Slug            string              `yaml:"slug"`
	Name            string              `yaml:"name"`
	Brand           MockBrand           `yaml:"brand"`
	BrandName       string              `yaml:"brand_name"`
	Price           float64             `yaml:"price"`
	MRP             float64             `yaml:"mrp"`
	Image           string              `yaml:"image"`
	Images          []string            `yaml:"images"`
	MediaGrouped    map[string][]string `yaml:"media_grouped"`
	Sizes           []MockSize          `yaml:"sizes"`
	SizeChartType   string              `yaml:"size_chart_type"`
	FootwearDetails FootwearDetails     `yaml:"footwear_details"`
	Color           string              `yaml:"color"`
	ColorHex        string              `yaml:"color_hex"`
	CatalogueID     string              `yaml:"catalogue_id"`
	CategoryID      string              `yaml:"category_id"`
	Rating          float64             `yaml:"rating"`
	ReviewCount     int                 `yaml:"review_count"`
	Gender          string              `yaml:"gender"`
	Tags            []string            `yaml:"tags"` // nil when the record uses the legacy flags
	InStock         *bool               `yaml:"in_stock"`
	Description     string              `yaml:"description"`
	LegacyFlags     `yaml:",inline"`
}

func (MockRecord) isRecord() {}

// LegacyFlags is the older boolean flag format of mock records.
type LegacyFlags struct {
	IsNew        bool `yaml:"is_new"`
	IsTrending   bool `yaml:"is_trending"`
	IsFeatured   bool `yaml:"is_featured"`
	IsHot        bool `yaml:"is_hot"`
	IsBestseller bool `yaml:"is_bestseller"`
	IsOnSale     bool `yaml:"is_on_sale"`
	IsLimited    bool `yaml:"is_limited"`
	IsExclusive  bool `yaml:"is_exclusive"`
	IsPopular    bool `yaml:"is_popular"`
}

type FootwearDetails struct {
	SizeChartType string `yaml:"size_chart_type"`
}

// MockBrand accepts either a plain brand string or a mapping with a name.
type MockBrand string

func (b *MockBrand) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*b = MockBrand(strings.TrimSpace(n.Value))
		return nil
	case yaml.MappingNode:
		var obj struct {
			Name string `yaml:"name"`
		}
		if err := n.Decode(&obj); err != nil {
			return err
		}
		*b = MockBrand(strings.TrimSpace(obj.Name))
		return nil
	}
	return fmt.Errorf("catalog: line %d: brand must be a string or a mapping", n.Line)
}

// MockSize accepts a bare label (9, "M") or a mapping with stock details.
type MockSize struct {
	Label     string
	Stock     *int
	InStock   *bool
	VariantID string
}

func (s *MockSize) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		s.Label = strings.TrimSpace(n.Value)
		return nil
	case yaml.MappingNode:
		var obj struct {
			Label     yaml.Node `yaml:"label"`
			Size      yaml.Node `yaml:"size"`
			Value     yaml.Node `yaml:"value"`
			Stock     *int      `yaml:"stock"`
			InStock   *bool     `yaml:"in_stock"`
			SKU       string    `yaml:"sku"`
			VariantID string    `yaml:"variant_id"`
		}
		if err := n.Decode(&obj); err != nil {
			return err
		}
		for _, v := range []yaml.Node{obj.Label, obj.Size, obj.Value} {
			if v.Kind == yaml.ScalarNode && strings.TrimSpace(v.Value) != "" {
				s.Label = strings.TrimSpace(v.Value)
				break
			}
		}
		s.Stock, s.InStock = obj.Stock, obj.InStock
		s.VariantID = obj.VariantID
		if s.VariantID == "" {
			s.VariantID = obj.SKU
		}
		return nil
	}
	return fmt.Errorf("catalog: line %d: size must be a scalar or a mapping", n.Line)
}

// MigrateLegacyFlags makes the tag list the only flag source of rec. A record that already
// has tags keeps them; otherwise tags are synthesized from the legacy booleans. The legacy
// booleans are cleared either way, so migrating twice changes nothing.
func MigrateLegacyFlags(rec MockRecord) MockRecord {
	if rec.Tags == nil {
		legacy := []struct {
			set bool
			tag string
		}{
			{rec.IsNew, domain.TagNew},
			{rec.IsTrending, domain.TagTrending},
			{rec.IsFeatured, domain.TagFeatured},
			{rec.IsHot, domain.TagHot},
			{rec.IsBestseller, domain.TagBestseller},
			{rec.IsOnSale, domain.TagSale},
			{rec.IsLimited, domain.TagLimited},
			{rec.IsExclusive, domain.TagExclusive},
			{rec.IsPopular, domain.TagPopular},
		}
		tags := []string{}
		for _, l := range legacy {
			if l.set {
				tags = append(tags, l.tag)
			}
		}
		rec.Tags = tags
	}
	rec.LegacyFlags = LegacyFlags{}
	return rec
}
