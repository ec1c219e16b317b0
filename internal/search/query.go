package search

import (
	"strings"

	"stays/internal/models"
)

// textFields are the multi_match targets with their boosts: title highest,
// city/country medium, description/address base.
var textFields = []string{"title^3", "city^2", "country^2", "description", "address"}

// BuildQuery builds the _search body for params. It mirrors BuildStoreFilter clause for clause.
func BuildQuery(params models.SearchParams) map[string]interface{} {
	var must []interface{}
	if params.Query != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     params.Query,
				"fields":    textFields,
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	filter := []interface{}{term("is_active", true)}

	f := params.Filters
	if f.PropertyType != nil {
		filter = append(filter, term("property_type", string(*f.PropertyType)))
	}
	if f.City != nil {
		filter = append(filter, contains("city.keyword", *f.City))
	}
	if f.Country != nil {
		filter = append(filter, contains("country.keyword", *f.Country))
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		bounds := map[string]interface{}{}
		if f.MinPrice != nil {
			bounds["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			bounds["lte"] = *f.MaxPrice
		}
		filter = append(filter, rangeClause("price_per_night", bounds))
	}
	if f.MinGuests != nil {
		filter = append(filter, rangeClause("guests", map[string]interface{}{"gte": *f.MinGuests}))
	}
	if f.MinBedrooms != nil {
		filter = append(filter, rangeClause("bedrooms", map[string]interface{}{"gte": *f.MinBedrooms}))
	}
	for _, amenity := range f.Amenities {
		filter = append(filter, term(amenity, true))
	}

	order := "asc"
	if params.Ordering.Descending() {
		order = "desc"
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{params.Ordering.Field(): map[string]interface{}{"order": order}},
			map[string]interface{}{"listing_id": map[string]interface{}{"order": "asc"}},
		},
		"from":             params.Offset(),
		"size":             params.PageSize,
		"track_total_hits": true,
		"_source":          false,
	}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func rangeClause(field string, bounds map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"range": map[string]interface{}{field: bounds}}
}

// wildcardEscaper escapes the wildcard query metacharacters.
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// contains is a case-insensitive substring match on a keyword field.
func contains(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{
				"value":            "*" + wildcardEscaper.Replace(value) + "*",
				"case_insensitive": true,
			},
		},
	}
}
