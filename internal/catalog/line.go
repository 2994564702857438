package catalog

import (
	"context"
	"strings"

	"storefront-service/internal/domain"
)

// LineItem builds a cart line for qty units of one size of product id. Name, brand,
// prices and image come from the catalog. size may be the display label or the UK
// label. An empty color selects the product's own color; any other color must match it.
func (s *Service) LineItem(ctx context.Context, id string, gender domain.Gender, size, color string, qty int) (domain.LineItem, error) {
	p, err := s.GetByID(ctx, id, gender)
	if err != nil {
		return domain.LineItem{}, err
	}
	if color = strings.TrimSpace(color); color != "" && !strings.EqualFold(color, p.Color) {
		return domain.LineItem{}, ErrVariantNotFound
	}

	want := domain.NormalizeSizeLabel(size)
	for _, opt := range p.Sizes {
		uk := s.normalizer.UKLabel(opt, p.Gender)
		if want != domain.NormalizeSizeLabel(opt.Label) && want != domain.NormalizeSizeLabel(uk) {
			continue
		}
		line := domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Brand:     p.Brand,
			Price:     p.Price,
			Size:      domain.SizeSelection{UK: uk, EU: s.normalizer.EULabel(opt, p.Gender)},
			Color:     p.Color,
			Quantity:  qty,
			Image:     p.Image,
		}
		if p.MRP != nil {
			mrp := *p.MRP
			line.OriginalPrice = &mrp
		}
		return line, nil
	}
	return domain.LineItem{}, ErrVariantNotFound
}
