package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"stays/internal/models"
)

func TestParseOrdering(t *testing.T) {
	assert.Equal(t, models.OrderPriceAsc, models.ParseOrdering("price_per_night"))
	assert.Equal(t, models.OrderPriceDesc, models.ParseOrdering("-price_per_night"))
	assert.Equal(t, models.OrderCreatedAsc, models.ParseOrdering(" created_at "))
	for _, raw := range []string{"", "malicious_field", "-password", "price_per_night; drop", "title"} {
		assert.Equal(t, models.DefaultOrdering, models.ParseOrdering(raw), raw)
	}

	assert.Equal(t, "price_per_night", models.OrderPriceDesc.Field())
	assert.True(t, models.OrderPriceDesc.Descending())
	assert.False(t, models.OrderCreatedAsc.Descending())
}

func TestSearchParams_Normalize(t *testing.T) {
	p := models.SearchParams{Query: "  paris ", Page: 0, PageSize: 999, Ordering: "malicious_field"}
	p.Normalize(12, 50)
	assert.Equal(t, "paris", p.Query)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, models.DefaultOrdering, p.Ordering)

	p = models.SearchParams{Page: -3, PageSize: 0}
	p.Normalize(12, 50)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.PageSize)

	p = models.SearchParams{Page: 3, PageSize: 20}
	p.Normalize(12, 50)
	assert.Equal(t, 40, p.Offset())

	p = models.SearchParams{Page: math.MaxInt, PageSize: 50}
	p.Normalize(12, 50)
	assert.Equal(t, models.MaxPage, p.Page)
	assert.Equal(t, (models.MaxPage-1)*50, p.Offset())
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		count    int64
		pageSize int
		want     int
	}{
		{0, 12, 1},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{100, 50, 2},
		{101, 50, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, models.TotalPages(tc.count, tc.pageSize), "count=%d size=%d", tc.count, tc.pageSize)
	}
}
