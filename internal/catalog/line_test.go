package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

func TestService_LineItem(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	line, err := svc.LineItem(ctx, "m1", "", "9.0", "", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.LineItem{
		ProductID: "m1",
		Name:      "Runner",
		Brand:     "Stride",
		Price:     50,
		Size:      domain.SizeSelection{UK: "9", EU: "43"},
		Color:     "Black",
		Quantity:  2,
		Image:     line.Image,
	}, line)
	assert.NotEmpty(t, line.Image)
	assert.Nil(t, line.OriginalPrice)

	_, err = svc.LineItem(ctx, "m1", "", "9", "black", 1)
	assert.NoError(t, err, "color matches case-insensitively")

	tests := []struct {
		name            string
		id, size, color string
		want            error
	}{
		{"unknown product", "does-not-exist", "9", "", ErrProductNotFound},
		{"unknown size", "m1", "12", "", ErrVariantNotFound},
		{"other color", "m1", "9", "White", ErrVariantNotFound},
		{"product without sizes", "m2", "9", "", ErrVariantNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.LineItem(ctx, tt.id, "", tt.size, tt.color, 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_LineItemFromDisplayLabel(t *testing.T) {
	mc, err := LoadMockCatalog(strings.NewReader(`
segments:
  men:
    - { id: m1, name: Runner, brand: Stride, price: 2999, mrp: 3999, color: Black, size_chart_type: UK, sizes: [8, 9] }
`))
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	svc := NewService(Options{Mock: mc, Normalizer: NewNormalizer(nil, domain.ChartEU), Stock: mc.StockTable(5), Logger: logger})

	byEU, err := svc.LineItem(context.Background(), "m1", domain.GenderMen, "43", "", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SizeSelection{UK: "9", EU: "43"}, byEU.Size)
	require.NotNil(t, byEU.OriginalPrice)
	assert.Equal(t, 3999.0, *byEU.OriginalPrice)

	byUK, err := svc.LineItem(context.Background(), "m1", domain.GenderMen, "9", "", 1)
	require.NoError(t, err)
	assert.Equal(t, byEU, byUK)
}
