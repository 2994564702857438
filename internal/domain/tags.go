package domain

import "strings"

// Merchandising tags. The boolean Flags on a Product are a pure function of these.
const (
	TagNew        = "new"
	TagTrending   = "trending"
	TagFeatured   = "featured"
	TagHot        = "hot"
	TagBestseller = "bestseller"
	TagSale       = "sale"
	TagLimited    = "limited"
	TagExclusive  = "exclusive"
	TagPopular    = "popular"
)

// Flags are the tag-derived booleans shown by the storefront.
type Flags struct {
	IsNew        bool `json:"is_new"`
	IsTrending   bool `json:"is_trending"`
	IsFeatured   bool `json:"is_featured"`
	IsHot        bool `json:"is_hot"`
	IsBestseller bool `json:"is_bestseller"`
	IsOnSale     bool `json:"is_on_sale"`
	IsLimited    bool `json:"is_limited"`
	IsExclusive  bool `json:"is_exclusive"`
	IsPopular    bool `json:"is_popular"`
}

// FlagsFromTags is the only way Flags are produced.
func FlagsFromTags(tags []string) Flags {
	return Flags{
		IsNew:        containsTag(tags, TagNew),
		IsTrending:   containsTag(tags, TagTrending),
		IsFeatured:   containsTag(tags, TagFeatured),
		IsHot:        containsTag(tags, TagHot),
		IsBestseller: containsTag(tags, TagBestseller),
		IsOnSale:     containsTag(tags, TagSale),
		IsLimited:    containsTag(tags, TagLimited),
		IsExclusive:  containsTag(tags, TagExclusive),
		IsPopular:    containsTag(tags, TagPopular),
	}
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
// It never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = normalizeToken(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func upperToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
