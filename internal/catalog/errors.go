package catalog

import "errors"

var (
	ErrMissingID          = errors.New("catalog: record has no id")
	ErrProductNotFound    = errors.New("catalog: product not found")
	ErrCatalogUnavailable = errors.New("catalog: catalog unavailable")
	ErrVariantNotFound    = errors.New("catalog: product has no such size or color")
)
