// Package catalog normalizes product records from the remote API and the local mock
// catalog into one canonical shape, and answers filtered, paginated product queries.
package catalog

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
)

const (
	DefaultPerPage         = 20
	MaxPerPage             = 100
	DefaultRemoteFetchSize = 100
)

// RemoteSource is the upstream product API. FetchProduct returns an error wrapping
// ErrProductNotFound when the id is unknown upstream.
type RemoteSource interface {
	FetchProducts(ctx context.Context, f Filter) ([]RemoteRecord, error)
	FetchProduct(ctx context.Context, id string) (RemoteRecord, error)
}

// StockLookup resolves the stock of a variant.
type StockLookup interface {
	StockFor(productID, color, size string) int
}

// Filter selects products. Zero values mean "no constraint".
type Filter struct {
	Gender      domain.Gender
	CategoryID  string
	CatalogueID string
	Brand       string
	MinPrice    *float64
	MaxPrice    *float64
	Tags        []string
	Featured    bool // matches featured, trending or new products
	InStockOnly bool
	Page        int
	PerPage     int
}

// Page is one slice of a query result. Total and TotalPages describe the whole result.
type Page struct {
	Items      []domain.Product
	Total      int
	TotalPages int
	Page       int
	PerPage    int
	Degraded   bool // the remote source failed and only local data was used
}

// FacetCount is the number of products carrying one value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets summarize a query result for filter navigation.
type Facets struct {
	Brands     []FacetCount `json:"brands"`
	Tags       []FacetCount `json:"tags"`
	MinPrice   float64      `json:"min_price"`
	MaxPrice   float64      `json:"max_price"`
	InStock    int          `json:"in_stock"`
	OutOfStock int          `json:"out_of_stock"`
	Total      int          `json:"total"`
	Degraded   bool         `json:"degraded"`
}

// Options wires a Service.
type Options struct {
	Remote     RemoteSource // nil disables the remote source
	Mock       *MockCatalog
	Normalizer *Normalizer
	Stock      StockLookup
	FetchSize  int
	Logger     logrus.FieldLogger
}

// Service answers product queries over the merged remote and local sources.
type Service struct {
	remote     RemoteSource
	normalizer *Normalizer
	stock      StockLookup
	fetchSize  int
	log        logrus.FieldLogger
	local      map[domain.Gender][]domain.Product
}

// NewService normalizes the mock catalog once; records that fail normalization are logged and skipped.
func NewService(opts Options) *Service {
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(nil, domain.ChartIND)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.FetchSize <= 0 {
		opts.FetchSize = DefaultRemoteFetchSize
	}
	s := &Service{
		remote:     opts.Remote,
		normalizer: opts.Normalizer,
		stock:      opts.Stock,
		fetchSize:  opts.FetchSize,
		log:        opts.Logger,
		local:      make(map[domain.Gender][]domain.Product),
	}
	if opts.Mock != nil {
		for _, sr := range opts.Mock.Records("") {
			p, err := s.normalizer.Normalize(sr.Record, sr.Gender)
			if err != nil {
				s.log.WithError(err).WithField("segment", sr.Gender).Warn("skipping mock record")
				continue
			}
			s.local[sr.Gender] = append(s.local[sr.Gender], s.fillStock(p))
		}
	}
	return s
}

// RemoteEnabled reports whether a remote source is configured.
func (s *Service) RemoteEnabled() bool { return s.remote != nil }

// Query returns one page of products matching f.
func (s *Service) Query(ctx context.Context, f Filter) (Page, error) {
	page, perPage := normalizePaging(f.Page, f.PerPage)
	products, degraded, err := s.collect(ctx, f)
	if err != nil {
		return Page{Items: []domain.Product{}, Page: page, PerPage: perPage, Degraded: degraded}, err
	}
	out := Page{
		Total:      len(products),
		TotalPages: int(math.Ceil(float64(len(products)) / float64(perPage))),
		Page:       page,
		PerPage:    perPage,
		Degraded:   degraded,
	}
	start := (page - 1) * perPage
	if start >= len(products) {
		out.Items = []domain.Product{}
		return out, nil
	}
	end := min(start+perPage, len(products))
	out.Items = products[start:end]
	return out, nil
}

// GetByID returns one product, asking the remote source first. Its ColorVariants list
// every product of its catalogue group.
func (s *Service) GetByID(ctx context.Context, id string, gender domain.Gender) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, ErrProductNotFound
	}
	p, found := s.remoteByID(ctx, id, gender)
	if !found {
		p, found = s.localByID(id, gender)
	}
	if !found {
		return domain.Product{}, ErrProductNotFound
	}

	p.ColorVariants = []domain.ColorVariant{}
	if p.CatalogueID == nil {
		return p, nil
	}
	group, err := s.Query(ctx, Filter{Gender: p.Gender, CatalogueID: *p.CatalogueID, PerPage: MaxPerPage})
	if err != nil {
		s.log.WithError(err).WithField("catalogue_id", *p.CatalogueID).Warn("failed to load color variants")
	}
	self := false
	for _, sib := range group.Items {
		self = self || sib.ID == p.ID
		p.ColorVariants = append(p.ColorVariants, sib.Variant())
	}
	if !self {
		p.ColorVariants = append([]domain.ColorVariant{p.Variant()}, p.ColorVariants...)
	}
	return p, nil
}

// Facets summarizes every product matching f, ignoring pagination.
func (s *Service) Facets(ctx context.Context, f Filter) (Facets, error) {
	products, degraded, err := s.collect(ctx, f)
	out := Facets{Brands: []FacetCount{}, Tags: []FacetCount{}, Degraded: degraded}
	if err != nil {
		return out, err
	}
	brands := map[string]int{}
	tags := map[string]int{}
	for i, p := range products {
		brands[p.Brand]++
		for _, t := range p.Tags {
			tags[t]++
		}
		if p.InStock {
			out.InStock++
		} else {
			out.OutOfStock++
		}
		if i == 0 || p.Price < out.MinPrice {
			out.MinPrice = p.Price
		}
		if p.Price > out.MaxPrice {
			out.MaxPrice = p.Price
		}
	}
	out.Brands = sortedCounts(brands)
	out.Tags = sortedCounts(tags)
	out.Total = len(products)
	return out, nil
}

// collect runs the shared pipeline: select, fetch, filter, merge, group.
func (s *Service) collect(ctx context.Context, f Filter) ([]domain.Product, bool, error) {
	f.Tags = domain.NormalizeTags(f.Tags)
	local := s.localSegment(f.Gender)

	var remote []domain.Product
	degraded := false
	if s.remote != nil {
		rf := f
		rf.Page, rf.PerPage = 1, s.fetchSize
		recs, err := s.remote.FetchProducts(ctx, rf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			s.log.WithError(err).Warn("remote product source failed, serving local catalog only")
			degraded = true
		} else {
			remote = s.normalizeRemote(recs, f.Gender)
		}
	}
	if degraded && len(local) == 0 {
		return nil, true, ErrCatalogUnavailable
	}

	merged := mergeSources(filterProducts(remote, f), filterProducts(local, f))
	groupByCatalogue(merged)
	return merged, degraded, nil
}

func (s *Service) normalizeRemote(recs []RemoteRecord, gender domain.Gender) []domain.Product {
	out := make([]domain.Product, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		p, err := s.normalizer.Normalize(rec, gender)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, s.fillStock(p))
	}
	if dropped > 0 {
		s.log.WithField("dropped", dropped).Warn("dropped remote records without a usable id")
	}
	return out
}

func (s *Service) remoteByID(ctx context.Context, id string, gender domain.Gender) (domain.Product, bool) {
	if s.remote == nil {
		return domain.Product{}, false
	}
	rec, err := s.remote.FetchProduct(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			s.log.WithError(err).WithField("product_id", id).Warn("remote product lookup failed, trying local catalog")
		}
		return domain.Product{}, false
	}
	p, err := s.normalizer.Normalize(rec, gender)
	if err != nil {
		s.log.WithError(err).WithField("product_id", id).Warn("remote product is unusable")
		return domain.Product{}, false
	}
	return s.fillStock(p), true
}

func (s *Service) localByID(id string, gender domain.Gender) (domain.Product, bool) {
	for _, p := range s.localSegment(gender) {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// localSegment copies the product values of one segment, or of all segments in display order.
func (s *Service) localSegment(gender domain.Gender) []domain.Product {
	segments := domain.Segments
	if gender != "" {
		segments = []domain.Gender{gender}
	}
	var out []domain.Product
	for _, g := range segments {
		out = append(out, s.local[g]...)
	}
	return out
}

// fillStock resolves sizes of unknown stock from the stock table by their UK label.
func (s *Service) fillStock(p domain.Product) domain.Product {
	if s.stock == nil || len(p.Sizes) == 0 {
		return p
	}
	sizes := make([]domain.SizeOption, len(p.Sizes))
	copy(sizes, p.Sizes)
	for i := range sizes {
		if sizes[i].Stock != nil {
			continue
		}
		q := s.stock.StockFor(p.ID, p.Color, s.normalizer.UKLabel(sizes[i], p.Gender))
		sizes[i].Stock = &q
		sizes[i].InStock = sizes[i].InStock && q > 0
	}
	p.Sizes = sizes
	p.InStock = p.InStock && anySizeInStock(sizes)
	return p
}

func filterProducts(products []domain.Product, f Filter) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

// matches is the single filter predicate applied to both sources.
func matches(p domain.Product, f Filter) bool {
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.CatalogueID != "" && (p.CatalogueID == nil || *p.CatalogueID != f.CatalogueID) {
		return false
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	for _, t := range f.Tags {
		if !p.HasTag(t) {
			return false
		}
	}
	if f.Featured && !(p.IsFeatured || p.IsTrending || p.IsNew) {
		return false
	}
	if f.InStockOnly && !p.InStock {
		return false
	}
	return true
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}

func sortedCounts(m map[string]int) []FacetCount {
	out := make([]FacetCount, 0, len(m))
	for v, c := range m {
		out = append(out, FacetCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
