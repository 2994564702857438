package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"storefront-service/internal/domain"
	"storefront-service/internal/sizes"
)

const (
	DefaultBrand     = "Generic"
	PlaceholderImage = "https://placehold.co/600x800?text=No+Image"
)

// Normalizer turns raw records from either source into domain.Product values.
type Normalizer struct {
	converter sizes.Converter
	display   domain.SizeChartType
}

// NewNormalizer returns a Normalizer that exposes sizes in the display system.
// An empty display system means IND.
func NewNormalizer(conv sizes.Converter, display domain.SizeChartType) *Normalizer {
	if conv == nil {
		conv = sizes.Table{}
	}
	if display == "" {
		display = domain.ChartIND
	}
	return &Normalizer{converter: conv, display: display}
}

// DisplaySystem returns the size system products are exposed in.
func (n *Normalizer) DisplaySystem() domain.SizeChartType { return n.display }

// Normalize converts rec into a Product. gender is the segment the record was listed under;
// when empty the record's own gender field is used. Only a missing id is an error.
func (n *Normalizer) Normalize(rec Record, gender domain.Gender) (domain.Product, error) {
	var f fields
	switch r := rec.(type) {
	case RemoteRecord:
		f = remoteFields(r.Raw)
	case MockRecord:
		f = mockFields(MigrateLegacyFlags(r))
	case nil:
		return domain.Product{}, fmt.Errorf("catalog: nil record")
	default:
		return domain.Product{}, fmt.Errorf("catalog: unsupported record type %T", rec)
	}
	p, err := n.canonicalize(f, gender)
	if err != nil {
		return domain.Product{}, err
	}
	p.Source = rec
	return p, nil
}

// fields is the source-independent view of a raw record.
type fields struct {
	id, slug, name    string
	brand             string
	price, mrp        float64
	image             string
	images            []string
	mediaGrouped      map[string][]string
	sizes             []rawSize
	chartType         string
	footwearChartType string
	availability      map[string]rawSize
	color, colorHex   string
	colorOptions      map[string]string
	catalogueID       string
	categoryID        string
	rating            float64
	reviewCount       int
	gender            string
	tags              []string
	inStock           *bool
	description       string
}

type rawSize struct {
	label     string
	chartType string // set when the size carries its own original system
	stock     *int
	inStock   *bool
	variantID string
}

func mockFields(r MockRecord) fields {
	f := fields{
		id:                r.ID,
		slug:              r.Slug,
		name:              r.Name,
		brand:             string(r.Brand),
		price:             r.Price,
		mrp:               r.MRP,
		image:             r.Image,
		images:            r.Images,
		mediaGrouped:      r.MediaGrouped,
		chartType:         r.SizeChartType,
		footwearChartType: r.FootwearDetails.SizeChartType,
		color:             r.Color,
		colorHex:          r.ColorHex,
		catalogueID:       r.CatalogueID,
		categoryID:        r.CategoryID,
		rating:            r.Rating,
		reviewCount:       r.ReviewCount,
		gender:            r.Gender,
		tags:              r.Tags,
		inStock:           r.InStock,
		description:       r.Description,
	}
	if f.brand == "" {
		f.brand = r.BrandName
	}
	for _, s := range r.Sizes {
		f.sizes = append(f.sizes, rawSize{label: s.Label, stock: s.Stock, inStock: s.InStock, variantID: s.VariantID})
	}
	return f
}

func remoteFields(m map[string]any) fields {
	if m == nil {
		return fields{}
	}
	f := fields{
		id:          pickID(m, "id", "product_id", "_id"),
		slug:        pickString(m, "slug", "handle"),
		name:        pickString(m, "name", "title"),
		brand:       remoteBrand(m),
		image:       pickString(m, "image", "image_url", "thumbnail"),
		images:      imageList(m["images"]),
		color:       pickString(m, "color", "colour", "color_name"),
		colorHex:    pickString(m, "color_hex", "colorHex", "hex"),
		catalogueID: pickID(m, "catalogue_id", "catalogueId", "article_id"),
		categoryID:  pickID(m, "category_id", "categoryId", "category"),
		gender:      pickString(m, "gender", "segment"),
		description: pickString(m, "description"),
		chartType:   pickString(m, "size_chart_type", "sizeChartType"),
	}
	if fd, ok := m["footwear_details"].(map[string]any); ok {
		f.footwearChartType = pickString(fd, "size_chart_type", "sizeChartType")
	}
	f.price, _ = pickFloat(m, "price", "selling_price", "sale_price")
	f.mrp, _ = pickFloat(m, "mrp", "original_price", "compare_at_price")
	f.rating, _ = pickFloat(m, "rating", "average_rating")
	f.reviewCount, _ = pickInt(m, "review_count", "reviews_count", "reviewCount")
	if b, ok := pickBool(m, "in_stock", "inStock"); ok {
		f.inStock = &b
	}
	f.tags = remoteTags(m["tags"])
	f.mediaGrouped = remoteMediaGrouped(m["media_grouped"])
	f.colorOptions = remoteColorOptions(m["color_options"])
	if arr, ok := m["sizes"].([]any); ok {
		for _, it := range arr {
			if s, ok := remoteSize(it); ok {
				f.sizes = append(f.sizes, s)
			}
		}
	}
	if av, ok := m["availability"].(map[string]any); ok {
		f.availability = remoteAvailability(av["sizes"])
	}
	return f
}

func remoteBrand(m map[string]any) string {
	switch b := m["brand"].(type) {
	case string:
		if s := strings.TrimSpace(b); s != "" {
			return s
		}
	case map[string]any:
		if s := pickString(b, "name", "title"); s != "" {
			return s
		}
	}
	return pickString(m, "brand_name", "brandName")
}

func remoteTags(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := asString(it); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	}
	return nil
}

func remoteSize(v any) (rawSize, bool) {
	if obj, ok := v.(map[string]any); ok {
		s := rawSize{
			variantID: pickID(obj, "variant_id", "sku", "id"),
		}
		if lbl := pickString(obj, "original_label"); lbl != "" {
			s.label = lbl
			s.chartType = pickString(obj, "original_chart_type")
		} else {
			s.label = pickID(obj, "label", "size", "value")
		}
		if n, ok := pickInt(obj, "stock", "quantity"); ok {
			s.stock = &n
		}
		if b, ok := pickBool(obj, "in_stock", "available"); ok {
			s.inStock = &b
		}
		return s, s.label != ""
	}
	if lbl, ok := asNumberString(v); ok && strings.TrimSpace(lbl) != "" {
		return rawSize{label: strings.TrimSpace(lbl)}, true
	}
	return rawSize{}, false
}

// remoteAvailability accepts a list of size objects or a label→stock mapping.
func remoteAvailability(v any) map[string]rawSize {
	out := map[string]rawSize{}
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if s, ok := remoteSize(it); ok {
				out[domain.NormalizeSizeLabel(s.label)] = s
			}
		}
	case map[string]any:
		for lbl, qty := range t {
			if n, ok := asInt(qty); ok {
				out[domain.NormalizeSizeLabel(lbl)] = rawSize{label: lbl, stock: &n}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func remoteMediaGrouped(v any) map[string][]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(m))
	for color, imgs := range m {
		if list := imageList(imgs); len(list) > 0 {
			out[color] = list
		}
	}
	return out
}

// remoteColorOptions accepts [{name, hex}] or {name: hex}.
func remoteColorOptions(v any) map[string]string {
	out := map[string]string{}
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			name := pickString(obj, "name", "color", "label")
			hex := pickString(obj, "hex", "color_hex", "code")
			if name != "" && hex != "" {
				out[strings.ToLower(name)] = hex
			}
		}
	case map[string]any:
		for name, hex := range t {
			if s, ok := asString(hex); ok && s != "" {
				out[strings.ToLower(name)] = s
			}
		}
	}
	return out
}

func (n *Normalizer) canonicalize(f fields, gender domain.Gender) (domain.Product, error) {
	id := strings.TrimSpace(f.id)
	if id == "" {
		return domain.Product{}, ErrMissingID
	}
	if gender == "" {
		gender, _ = domain.ParseGender(f.gender)
	}

	p := domain.Product{
		ID:            id,
		Name:          strings.TrimSpace(f.name),
		Brand:         strings.TrimSpace(f.brand),
		Price:         math.Max(f.price, 0),
		Color:         strings.TrimSpace(f.color),
		ColorHex:      strings.TrimSpace(f.colorHex),
		CategoryID:    strings.TrimSpace(f.categoryID),
		Rating:        f.rating,
		ReviewCount:   f.reviewCount,
		Gender:        gender,
		Tags:          domain.NormalizeTags(f.tags),
		Description:   strings.TrimSpace(f.description),
		ColorVariants: []domain.ColorVariant{},
	}
	if p.Brand == "" {
		p.Brand = DefaultBrand
	}
	p.Slug = strings.TrimSpace(f.slug)
	if p.Slug == "" {
		p.Slug = slugify(p.Name, id)
	}
	if f.mrp > p.Price {
		mrp := f.mrp
		p.MRP = &mrp
		p.DiscountPercent = int(math.Round((mrp - p.Price) / mrp * 100))
	}
	if c := strings.TrimSpace(f.catalogueID); c != "" {
		p.CatalogueID = &c
	}
	if p.ColorHex == "" && p.Color != "" {
		p.ColorHex = f.colorOptions[strings.ToLower(p.Color)]
	}
	p.Flags = domain.FlagsFromTags(p.Tags)
	p.Image, p.Images = resolveImages(f, p.Color)
	p.Sizes = n.sizes(f, gender)
	if f.inStock != nil {
		p.InStock = *f.inStock
	} else {
		p.InStock = len(p.Sizes) == 0 || anySizeInStock(p.Sizes)
	}
	return p, nil
}

// nativeChartType is the explicit chart type, else the footwear-details one, else IND.
func nativeChartType(f fields) domain.SizeChartType {
	for _, s := range []string{f.chartType, f.footwearChartType} {
		if t, ok := domain.ParseSizeChartType(s); ok {
			return t
		}
	}
	return domain.ChartIND
}

func (n *Normalizer) sizes(f fields, gender domain.Gender) []domain.SizeOption {
	native := nativeChartType(f)
	out := make([]domain.SizeOption, 0, len(f.sizes))
	for _, s := range f.sizes {
		original := domain.NormalizeSizeLabel(s.label)
		if original == "" {
			continue
		}
		from := native
		if t, ok := domain.ParseSizeChartType(s.chartType); ok {
			from = t
		}
		label := original
		if from != n.display {
			if converted, ok := n.converter.Convert(original, from, n.display, gender); ok {
				label = converted
			}
		}
		opt := domain.SizeOption{
			Label:             label,
			OriginalLabel:     original,
			OriginalChartType: from,
			VariantID:         s.variantID,
		}
		stock, inStock := s.stock, s.inStock
		if av, ok := f.availability[original]; ok {
			stock, inStock = av.stock, av.inStock
		} else if av, ok := f.availability[label]; ok {
			stock, inStock = av.stock, av.inStock
		}
		if stock != nil {
			q := max(*stock, 0)
			opt.Stock = &q
		}
		switch {
		case inStock != nil:
			opt.InStock = *inStock
		case opt.Stock != nil:
			opt.InStock = *opt.Stock > 0
		default:
			opt.InStock = true
		}
		out = append(out, opt)
	}
	return out
}

// resolveImages picks the image list: explicit images, then the media group of the
// product's color, then every media group in key order, then the single image fields,
// then the placeholder. The result is never empty.
func resolveImages(f fields, color string) (string, []string) {
	imgs := dedupe(f.images)
	if len(imgs) == 0 && color != "" {
		for key, group := range f.mediaGrouped {
			if strings.EqualFold(key, color) {
				imgs = dedupe(group)
				break
			}
		}
	}
	if len(imgs) == 0 && len(f.mediaGrouped) > 0 {
		keys := make([]string, 0, len(f.mediaGrouped))
		for k := range f.mediaGrouped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var all []string
		for _, k := range keys {
			all = append(all, f.mediaGrouped[k]...)
		}
		imgs = dedupe(all)
	}
	primary := strings.TrimSpace(f.image)
	if len(imgs) == 0 && primary != "" {
		imgs = []string{primary}
	}
	if len(imgs) == 0 {
		imgs = []string{PlaceholderImage}
	}
	if primary == "" {
		primary = imgs[0]
	}
	return primary, imgs
}

func anySizeInStock(opts []domain.SizeOption) bool {
	for _, s := range opts {
		if s.InStock {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func slugify(name, id string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return id
	}
	return s + "-" + strings.ToLower(id)
}

// UKLabel returns the UK label of a size, which keys the stock table. Sizes that cannot
// be converted use their display label.
func (n *Normalizer) UKLabel(s domain.SizeOption, gender domain.Gender) string {
	switch s.OriginalChartType {
	case domain.ChartUK, domain.ChartIND:
		return s.OriginalLabel
	}
	if s.OriginalLabel != "" {
		if uk, ok := n.converter.Convert(s.OriginalLabel, s.OriginalChartType, domain.ChartUK, gender); ok {
			return uk
		}
	}
	return s.Label
}

// EULabel returns the EU label of a size, or "" when it has none.
func (n *Normalizer) EULabel(s domain.SizeOption, gender domain.Gender) string {
	if s.OriginalChartType == domain.ChartEU {
		return s.OriginalLabel
	}
	if eu, ok := n.converter.Convert(n.UKLabel(s, gender), domain.ChartUK, domain.ChartEU, gender); ok {
		return eu
	}
	return ""
}
