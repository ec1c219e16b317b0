package models

import (
	"strings"
)

// Ordering is a sanitised sort key. A leading "-" means descending.
type Ordering string

const (
	OrderPriceAsc    Ordering = "price_per_night"
	OrderPriceDesc   Ordering = "-price_per_night"
	OrderCreatedAsc  Ordering = "created_at"
	OrderCreatedDesc Ordering = "-created_at"

	DefaultOrdering = OrderCreatedDesc
)

// ParseOrdering maps a client-supplied sort key onto the allow-list.
// Unknown keys never reach a backend; they become the default ordering.
func ParseOrdering(raw string) Ordering {
	switch o := Ordering(strings.TrimSpace(raw)); o {
	case OrderPriceAsc, OrderPriceDesc, OrderCreatedAsc, OrderCreatedDesc:
		return o
	default:
		return DefaultOrdering
	}
}

// Field is the document field being sorted on.
func (o Ordering) Field() string {
	return strings.TrimPrefix(string(o), "-")
}

// Descending reports the sort direction.
func (o Ordering) Descending() bool {
	return strings.HasPrefix(string(o), "-")
}

// SearchFilters are the structured constraints of a search. Nil means "not filtered".
type SearchFilters struct {
	PropertyType *PropertyType
	City         *string
	Country      *string
	MinPrice     *float64
	MaxPrice     *float64
	MinGuests    *int
	MinBedrooms  *int
	// Amenities lists the amenity flags that must be true.
	Amenities []string
}

// SearchParams is one logical search request, identical for every engine.
type SearchParams struct {
	Query    string
	Filters  SearchFilters
	Ordering Ordering
	Page     int
	PageSize int
}

// MaxPage is the highest page number a search accepts.
const MaxPage = 100_000

// Normalize clamps paging and sanitises ordering in place.
// Pages are clamped to [1, MaxPage]. Page sizes below 1 become defaultSize and sizes above maxSize are clamped.
func (p *SearchParams) Normalize(defaultSize, maxSize int) {
	p.Query = strings.TrimSpace(p.Query)
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	p.Ordering = ParseOrdering(string(p.Ordering))
}

// Offset is the number of results skipped before this page.
func (p *SearchParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Search engine tags reported in responses.
const (
	EngineElasticsearch = "elasticsearch"
	EngineStore         = "orm"
)

// SearchPage is one page of search results.
type SearchPage struct {
	Count      int64         `json:"count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Results    []ListingView `json:"results"`
	Engine     string        `json:"engine"`
}

// TotalPages is ceil(count/pageSize), never less than 1.
func TotalPages(count int64, pageSize int) int {
	if pageSize < 1 || count <= 0 {
		return 1
	}
	pages := int((count + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

// AutocompleteSuggestion is a city/country pair offered while typing a destination.
type AutocompleteSuggestion struct {
	City    string `json:"city" bson:"city"`
	Country string `json:"country" bson:"country"`
	Label   string `json:"label" bson:"-"`
}
