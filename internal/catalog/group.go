package catalog

import "storefront-service/internal/domain"

// mergeSources puts remote products first and drops every local product whose id is
// already served remotely. Within one source the first occurrence of an id wins.
func mergeSources(remote, local []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))
	for _, src := range [][]domain.Product{remote, local} {
		for _, p := range src {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// groupByCatalogue sets ColorVariants on every product that has a catalogue id to the
// full list of products sharing it, itself included, in result order. Products without
// a catalogue id get an empty list.
func groupByCatalogue(products []domain.Product) {
	groups := make(map[string][]domain.ColorVariant)
	for _, p := range products {
		if p.CatalogueID != nil {
			groups[*p.CatalogueID] = append(groups[*p.CatalogueID], p.Variant())
		}
	}
	for i := range products {
		cid := products[i].CatalogueID
		if cid == nil {
			products[i].ColorVariants = []domain.ColorVariant{}
			continue
		}
		products[i].ColorVariants = append([]domain.ColorVariant{}, groups[*cid]...)
	}
}
