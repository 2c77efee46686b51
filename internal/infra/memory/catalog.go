package memory

import (
	"context"
	"sort"
	"strings"

	"onepercent-quiz-service/internal/domain"
)

// ListCountries derives the browsable countries from the loaded episodes.
func (l *StaticEpisodeLoader) ListCountries(_ context.Context) ([]domain.CountrySummary, error) {
	names := map[string]string{}
	seasons := map[string]map[int]struct{}{}
	for key, ep := range l.episodes {
		if names[key.Country] == "" {
			names[key.Country] = ep.CountryName
		}
		if seasons[key.Country] == nil {
			seasons[key.Country] = map[int]struct{}{}
		}
		seasons[key.Country][key.Season] = struct{}{}
	}

	out := make([]domain.CountrySummary, 0, len(names))
	for slug, name := range names {
		if name == "" {
			name = slug
		}
		out = append(out, domain.CountrySummary{Slug: slug, Name: name, SeasonCount: len(seasons[slug])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// ListSeasons counts episodes per season of a country.
func (l *StaticEpisodeLoader) ListSeasons(_ context.Context, country string) ([]domain.SeasonSummary, error) {
	country = strings.ToLower(country)
	counts := map[int]int{}
	for key := range l.episodes {
		if strings.ToLower(key.Country) == country {
			counts[key.Season]++
		}
	}
	if len(counts) == 0 {
		return nil, domain.ErrCountryNotFound
	}

	out := make([]domain.SeasonSummary, 0, len(counts))
	for number, episodes := range counts {
		out = append(out, domain.SeasonSummary{Number: number, EpisodeCount: episodes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ListEpisodes summarizes the episodes of one season.
func (l *StaticEpisodeLoader) ListEpisodes(_ context.Context, country string, season int) ([]domain.EpisodeSummary, error) {
	country = strings.ToLower(country)
	known := false
	var out []domain.EpisodeSummary
	for key, ep := range l.episodes {
		if strings.ToLower(key.Country) != country {
			continue
		}
		known = true
		if key.Season != season {
			continue
		}
		filled := 0
		for _, q := range ep.Questions {
			if q.Filled() {
				filled++
			}
		}
		out = append(out, domain.EpisodeSummary{
			Number:          key.Episode,
			Title:           ep.Title,
			TotalQuestions:  len(ep.Questions),
			FilledQuestions: filled,
		})
	}
	switch {
	case !known:
		return nil, domain.ErrCountryNotFound
	case len(out) == 0:
		return nil, domain.ErrSeasonNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
