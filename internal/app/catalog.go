package app

import (
	"context"
	"strings"

	"onepercent-quiz-service/internal/domain"
)

// CatalogReader lists the countries, seasons and episodes players browse
// before opening an episode.
type CatalogReader interface {
	ListCountries(ctx context.Context) ([]domain.CountrySummary, error)
	ListSeasons(ctx context.Context, country string) ([]domain.SeasonSummary, error)
	ListEpisodes(ctx context.Context, country string, season int) ([]domain.EpisodeSummary, error)
}

// WithCatalog enables catalog browsing.
func WithCatalog(catalog CatalogReader) Option {
	return func(s *QuizService) { s.catalog = catalog }
}

// Countries lists browsable countries. Without a catalog the list is empty.
func (s *QuizService) Countries(ctx context.Context) ([]domain.CountrySummary, error) {
	if s.catalog == nil {
		return []domain.CountrySummary{}, nil
	}
	return s.catalog.ListCountries(ctx)
}

// Seasons lists the seasons of a country.
func (s *QuizService) Seasons(ctx context.Context, country string) ([]domain.SeasonSummary, error) {
	if s.catalog == nil {
		return nil, domain.ErrCountryNotFound
	}
	return s.catalog.ListSeasons(ctx, strings.ToLower(country))
}

// Episodes lists the episodes of a season with their question counts.
func (s *QuizService) Episodes(ctx context.Context, country string, season int) ([]domain.EpisodeSummary, error) {
	if s.catalog == nil {
		return nil, domain.ErrCountryNotFound
	}
	return s.catalog.ListEpisodes(ctx, strings.ToLower(country), season)
}
