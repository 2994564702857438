package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

func TestDefaultMockCatalog(t *testing.T) {
	mc, err := DefaultMockCatalog()
	require.NoError(t, err)

	assert.Equal(t, 10, mc.DefaultStock)
	assert.NotEmpty(t, mc.Records(domain.GenderMen))
	assert.NotEmpty(t, mc.Records(domain.GenderWomen))
	assert.NotEmpty(t, mc.Records(domain.GenderKids))
	assert.Equal(t, 3, mc.StockTable(-1).StockFor("m1", "Black", "9"))

	all := mc.Records("")
	assert.Equal(t, domain.GenderMen, all[0].Gender)
	assert.Equal(t, domain.GenderKids, all[len(all)-1].Gender)
	for _, sr := range all {
		assert.NotNil(t, sr.Record.Tags, "legacy flags are migrated at load: %s", sr.Record.ID)
		assert.Equal(t, LegacyFlags{}, sr.Record.LegacyFlags)
	}
}

func TestDefaultMockCatalog_Normalizes(t *testing.T) {
	mc, err := DefaultMockCatalog()
	require.NoError(t, err)
	s := NewService(Options{Mock: mc, Stock: mc.StockTable(-1)})

	m2, err := s.GetByID(context.Background(), "m2", domain.GenderMen)
	require.NoError(t, err)
	assert.Equal(t, "Stride", m2.Brand)
	assert.Nil(t, m2.MRP, "mrp equal to price is not a discount")
	assert.True(t, m2.IsBestseller)
	assert.True(t, m2.IsPopular)
	require.Len(t, m2.Sizes, 3)
	assert.Equal(t, []string{"9", "10", "11"}, []string{m2.Sizes[0].Label, m2.Sizes[1].Label, m2.Sizes[2].Label})
	assert.Equal(t, domain.ChartEU, m2.Sizes[0].OriginalChartType)
	assert.Equal(t, 5, *m2.Sizes[0].Stock)
	assert.Equal(t, 1, *m2.Sizes[2].Stock)
	assert.Equal(t, "m2-43", m2.Sizes[0].VariantID)
	assert.Equal(t, []string{"https://cdn.storefront.local/m2/white-1.jpg"}, m2.Images)
	assert.Len(t, m2.ColorVariants, 2)

	local101, err := s.GetByID(context.Background(), "101", "")
	require.NoError(t, err)
	assert.Equal(t, "Summit", local101.Brand)
	assert.Equal(t, "https://cdn.storefront.local/101/olive.jpg", local101.Image)
}

func TestLoadMockCatalog_Errors(t *testing.T) {
	_, err := LoadMockCatalog(strings.NewReader("segments:\n  men:\n    - { id: x, colour: Red }\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = LoadMockCatalog(strings.NewReader("segments:\n  aliens:\n    - { id: x }\n"))
	assert.ErrorContains(t, err, "unknown segment")

	_, err = LoadMockCatalog(strings.NewReader("segments:\n  men:\n    - { id: x, brand: [a, b] }\n"))
	assert.ErrorContains(t, err, "brand must be")
}

func TestLoadMockCatalog_Empty(t *testing.T) {
	mc, err := LoadMockCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, mc.Records(""))
	assert.Equal(t, 10, mc.StockTable(-1).Default())
}

func TestLoadMockCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_stock: 4\nsegments:\n  kids:\n    - { id: k9, sizes: [{ size: 12, stock: 1, sku: k9-12 }] }\n"), 0o600))

	mc, err := LoadMockCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, mc.Records(domain.GenderKids), 1)
	rec := mc.Records(domain.GenderKids)[0].Record
	assert.Equal(t, "12", rec.Sizes[0].Label)
	assert.Equal(t, "k9-12", rec.Sizes[0].VariantID)
	assert.Equal(t, 1, *rec.Sizes[0].Stock)
	assert.Equal(t, 4, mc.StockTable(-1).Default())

	_, err = LoadMockCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
