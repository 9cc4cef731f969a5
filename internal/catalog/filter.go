package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// SortKey selects the ordering of a filtered result.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortPopular   SortKey = "popular"
	SortRating    SortKey = "rating"
)

// ParseSortKey accepts the canonical keys plus the storefront's legacy aliases.
// An empty string yields SortNewest.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(s) {
	case "", "newest":
		return SortNewest, nil
	case "oldest":
		return SortOldest, nil
	case "price-asc", "price-low":
		return SortPriceAsc, nil
	case "price-desc", "price-high":
		return SortPriceDesc, nil
	case "popular", "popularity":
		return SortPopular, nil
	case "rating":
		return SortRating, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// TagMode decides how multiple selected tags combine.
type TagMode string

const (
	// TagsAll requires a product to carry every selected tag.
	TagsAll TagMode = "all"
	// TagsAny requires a product to carry at least one selected tag.
	TagsAny TagMode = "any"
)

// ParseTagMode parses a tag mode. An empty string yields TagsAll.
func ParseTagMode(s string) (TagMode, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return TagsAll, nil
	case "any":
		return TagsAny, nil
	default:
		return "", fmt.Errorf("unknown tag mode %q", s)
	}
}

// PriceRange bounds the product price, inclusive. A nil bound is open.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// Contains reports whether price lies within the range.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	if r.Min != nil && price.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && price.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// clamped returns a range with min >= 0 and min <= max.
func (r PriceRange) clamped() PriceRange {
	out := r
	if out.Min != nil {
		minV := decimal.Max(*out.Min, decimal.Zero)
		out.Min = &minV
	}
	if out.Max != nil {
		maxV := decimal.Max(*out.Max, decimal.Zero)
		out.Max = &maxV
	}
	if out.Min != nil && out.Max != nil && out.Min.GreaterThan(*out.Max) {
		minV := *out.Max
		out.Min = &minV
	}
	return out
}

// Filters is the value object driving Apply.
type Filters struct {
	Query      string
	Categories []string
	Tags       []string
	TagMode    TagMode
	Price      PriceRange
	Featured   *bool
	Sort       SortKey
	Page       int
	PageSize   int
}

// Normalize applies defaults and clamps out-of-range values.
func (f Filters) Normalize() Filters {
	out := f
	out.Query = strings.TrimSpace(out.Query)
	if out.TagMode == "" {
		out.TagMode = TagsAll
	}
	if out.Sort == "" {
		out.Sort = SortNewest
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	out.Price = out.Price.clamped()
	return out
}

// Result is one page of a filtered, sorted catalog.
type Result struct {
	Items      []Product `json:"items"`
	TotalCount int       `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
}

// Apply filters, sorts and paginates products. It never modifies its input and
// returns the same output for the same arguments.
func Apply(products []Product, f Filters) Result {
	f = f.Normalize()

	matched := make([]Product, 0, len(products))
	for _, p := range products {
		if f.matches(p) {
			matched = append(matched, p)
		}
	}

	slices.SortStableFunc(matched, comparator(f.Sort))

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	items := []Product{}
	if start < total {
		end := min(start+f.PageSize, total)
		items = matched[start:end]
	}

	return Result{
		Items:      items,
		TotalCount: total,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
		Page:       f.Page,
		PageSize:   f.PageSize,
	}
}

func (f Filters) matches(p Product) bool {
	if f.Query != "" && !matchesQuery(p, strings.ToLower(f.Query)) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if len(f.Tags) > 0 && !f.matchesTags(p) {
		return false
	}
	if !f.Price.Contains(p.Price) {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	return true
}

func matchesQuery(p Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (f Filters) matchesTags(p Product) bool {
	if f.TagMode == TagsAny {
		return slices.ContainsFunc(f.Tags, p.HasTag)
	}
	for _, tag := range f.Tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	return true
}

func comparator(key SortKey) func(a, b Product) int {
	switch key {
	case SortOldest:
		return func(a, b Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortPriceAsc:
		return func(a, b Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		return func(a, b Product) int { return b.Price.Cmp(a.Price) }
	case SortPopular:
		return func(a, b Product) int { return cmp.Compare(b.DownloadCount, a.DownloadCount) }
	case SortRating:
		return func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
}

// FacetSummary lists the filterable values present in a catalog.
type FacetSummary struct {
	Categories []string        `json:"categories"`
	Tags       []string        `json:"tags"`
	MinPrice   decimal.Decimal `json:"minPrice"`
	MaxPrice   decimal.Decimal `json:"maxPrice"`
}

// Facets collects categories and tags in first-seen order and the price bounds.
func Facets(products []Product) FacetSummary {
	summary := FacetSummary{Categories: []string{}, Tags: []string{}}
	for i, p := range products {
		if !slices.Contains(summary.Categories, p.Category) {
			summary.Categories = append(summary.Categories, p.Category)
		}
		for _, tag := range p.Tags {
			if !slices.Contains(summary.Tags, tag) {
				summary.Tags = append(summary.Tags, tag)
			}
		}
		if i == 0 || p.Price.LessThan(summary.MinPrice) {
			summary.MinPrice = p.Price
		}
		if i == 0 || p.Price.GreaterThan(summary.MaxPrice) {
			summary.MaxPrice = p.Price
		}
	}
	return summary
}
