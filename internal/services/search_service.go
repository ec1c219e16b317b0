package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stays/internal/cache"
	"stays/internal/config"
	"stays/internal/models"
	"stays/internal/search"
)

// ISearchService answers listing searches.
type ISearchService interface {
	// Search normalises params and returns one page of active listings. An index
	// failure is never returned: the same query is answered by the fallback engine.
	Search(ctx context.Context, params models.SearchParams) (*models.SearchPage, error)
	Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error)
}

type searchService struct {
	cfg      *config.Config
	primary  search.Engine
	fallback search.Engine
	health   cache.IndexHealth
	listings IListingService
}

// NewSearchService creates the search router. primary and health may be nil; without a
// primary every search goes straight to the fallback.
func NewSearchService(cfg *config.Config, primary, fallback search.Engine, health cache.IndexHealth, listings IListingService) ISearchService {
	return &searchService{cfg: cfg, primary: primary, fallback: fallback, health: health, listings: listings}
}

func (s *searchService) Search(ctx context.Context, params models.SearchParams) (*models.SearchPage, error) {
	params.Normalize(s.cfg.SearchDefaultPageSize, s.cfg.SearchMaxPageSize)

	hits, engine, err := s.route(ctx, params)
	if err != nil {
		return nil, err
	}

	listings, err := s.listings.FindListingsByIDs(ctx, hits.IDs)
	if err != nil {
		return nil, err
	}
	views, err := s.listings.DecorateListings(ctx, listings)
	if err != nil {
		return nil, err
	}

	return &models.SearchPage{
		Count:      hits.Total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: models.TotalPages(hits.Total, params.PageSize),
		Results:    views,
		Engine:     engine,
	}, nil
}

// route tries the primary engine and falls back on any failure of it. Only failures
// on the index side mark the index down.
func (s *searchService) route(ctx context.Context, params models.SearchParams) (*search.Hits, string, error) {
	if s.primary != nil {
		switch {
		case s.health != nil && s.health.IsDown(ctx):
			log.Printf("Search index marked down, using %s engine", s.fallback.Name())
		case params.Offset()+params.PageSize > search.MaxResultWindow:
			log.Printf("Page %d is beyond the index result window, using %s engine", params.Page, s.fallback.Name())
		default:
			hits, err := s.searchPrimary(ctx, params)
			if err == nil {
				return hits, s.primary.Name(), nil
			}
			log.Printf("Search via %s failed, falling back to %s: %v", s.primary.Name(), s.fallback.Name(), err)
			if s.health != nil && indexAtFault(ctx, err) {
				s.health.MarkDown(ctx, err.Error())
			}
		}
	}

	hits, err := s.fallback.Search(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("%s search failed: %w", s.fallback.Name(), err)
	}
	return hits, s.fallback.Name(), nil
}

// searchPrimary bounds the primary engine by the index timeout. Every failure, including
// a nil result, comes back as ErrIndexUnavailable.
func (s *searchService) searchPrimary(ctx context.Context, params models.SearchParams) (hits *search.Hits, err error) {
	pctx := ctx
	if s.cfg.SearchIndexTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.cfg.SearchIndexTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			hits, err = nil, fmt.Errorf("%w: engine panic: %v", search.ErrIndexUnavailable, r)
		}
	}()

	hits, err = s.primary.Search(pctx, params)
	if err != nil {
		if !errors.Is(err, search.ErrIndexUnavailable) {
			err = fmt.Errorf("%w: %w", search.ErrIndexUnavailable, err)
		}
		return nil, err
	}
	if hits == nil {
		return nil, fmt.Errorf("%w: empty response", search.ErrIndexUnavailable)
	}
	return hits, nil
}

// indexAtFault is false when the caller gave up or the index refused the query itself.
func indexAtFault(ctx context.Context, err error) bool {
	return ctx.Err() == nil && !errors.Is(err, search.ErrQueryRejected)
}

func (s *searchService) Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error) {
	return s.listings.Autocomplete(ctx, q)
}
