package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"storefront-service/internal/domain"
	"storefront-service/internal/stock"
)

//go:embed mockdata/catalog.yaml
var embeddedCatalog []byte

// MockCatalog is the local product data: records per segment plus the variant stock entries.
type MockCatalog struct {
	DefaultStock int                            `yaml:"default_stock"`
	Stock        []stock.Entry                  `yaml:"stock"`
	Segments     map[domain.Gender][]MockRecord `yaml:"segments"`
}

// SegmentRecord is a mock record together with the segment it is listed under.
type SegmentRecord struct {
	Gender domain.Gender
	Record MockRecord
}

// LoadMockCatalog decodes a catalog document and migrates legacy flags at ingestion.
func LoadMockCatalog(r io.Reader) (*MockCatalog, error) {
	mc := &MockCatalog{DefaultStock: stock.DefaultQuantity}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(mc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: decode mock catalog: %w", err)
	}
	for g, recs := range mc.Segments {
		if parsed, ok := domain.ParseGender(string(g)); !ok || parsed != g || g == "" {
			return nil, fmt.Errorf("catalog: unknown segment %q", g)
		}
		for i := range recs {
			recs[i] = MigrateLegacyFlags(recs[i])
		}
	}
	return mc, nil
}

// LoadMockCatalogFile reads a catalog from path.
func LoadMockCatalogFile(path string) (*MockCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open mock catalog: %w", err)
	}
	defer f.Close()
	return LoadMockCatalog(f)
}

// DefaultMockCatalog returns the catalog compiled into the binary.
func DefaultMockCatalog() (*MockCatalog, error) {
	return LoadMockCatalog(bytes.NewReader(embeddedCatalog))
}

// Records returns the records of one segment, or of every segment in display order when
// gender is empty.
func (mc *MockCatalog) Records(gender domain.Gender) []SegmentRecord {
	segments := domain.Segments
	if gender != "" {
		segments = []domain.Gender{gender}
	}
	var out []SegmentRecord
	for _, g := range segments {
		for _, r := range mc.Segments[g] {
			out = append(out, SegmentRecord{Gender: g, Record: r})
		}
	}
	return out
}

// StockTable builds the variant stock table. defaultQty overrides the catalog default when
// it is not negative.
func (mc *MockCatalog) StockTable(defaultQty int) *stock.Table {
	if defaultQty < 0 {
		defaultQty = mc.DefaultStock
	}
	return stock.NewTable(defaultQty, mc.Stock...)
}
