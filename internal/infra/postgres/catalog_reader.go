package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"onepercent-quiz-service/internal/domain"
)

// CatalogReader lists countries, seasons and episodes for players browsing to an episode.
type CatalogReader struct {
	pool *pgxpool.Pool
}

func NewCatalogReader(pool *pgxpool.Pool) *CatalogReader {
	return &CatalogReader{pool: pool}
}

type seasonRow struct {
	Number       int
	Year         sql.NullInt32
	EpisodeCount int
}

const countriesQuery = `
SELECT c.slug, c.name, COUNT(s.id)
FROM countries c
LEFT JOIN seasons s ON s.country_id = c.id
GROUP BY c.id, c.slug, c.name
ORDER BY c.name ASC`

const countryIDQuery = `SELECT id FROM countries WHERE lower(slug) = lower($1)`

const seasonsQuery = `
SELECT s.number, s.year, COUNT(e.id)
FROM seasons s
LEFT JOIN episodes e ON e.season_id = s.id
WHERE s.country_id = $1
GROUP BY s.id, s.number, s.year
ORDER BY s.number ASC`

const seasonIDQuery = `
SELECT s.id
FROM countries c
LEFT JOIN seasons s ON s.country_id = c.id AND s.number = $2
WHERE lower(c.slug) = lower($1)`

const episodesQuery = `
SELECT e.number, e.title, COUNT(q.id),
       COUNT(q.id) FILTER (WHERE btrim(q.question_text) <> '')
FROM episodes e
LEFT JOIN questions q ON q.episode_id = e.id
WHERE e.season_id = $1
GROUP BY e.id, e.number, e.title
ORDER BY e.number ASC`

// ListCountries returns every country by name with its season count.
func (r *CatalogReader) ListCountries(ctx context.Context) ([]domain.CountrySummary, error) {
	rows, err := r.pool.Query(ctx, countriesQuery)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	out := []domain.CountrySummary{}
	for rows.Next() {
		var c domain.CountrySummary
		if err := rows.Scan(&c.Slug, &c.Name, &c.SeasonCount); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListSeasons returns the seasons of a country by number with their episode counts.
func (r *CatalogReader) ListSeasons(ctx context.Context, country string) ([]domain.SeasonSummary, error) {
	var countryID string
	err := r.pool.QueryRow(ctx, countryIDQuery, country).Scan(&countryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCountryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find country %s: %w", country, err)
	}

	rows, err := r.pool.Query(ctx, seasonsQuery, countryID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	out := []domain.SeasonSummary{}
	for rows.Next() {
		var row seasonRow
		if err := rows.Scan(&row.Number, &row.Year, &row.EpisodeCount); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, seasonSummary(row))
	}
	return out, rows.Err()
}

// ListEpisodes returns the episodes of a season by number with total and
// written question counts.
func (r *CatalogReader) ListEpisodes(ctx context.Context, country string, season int) ([]domain.EpisodeSummary, error) {
	var seasonID sql.NullString
	err := r.pool.QueryRow(ctx, seasonIDQuery, country, season).Scan(&seasonID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCountryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find season %s/%d: %w", country, season, err)
	}
	if !seasonID.Valid {
		return nil, domain.ErrSeasonNotFound
	}

	rows, err := r.pool.Query(ctx, episodesQuery, seasonID.String)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	out := []domain.EpisodeSummary{}
	for rows.Next() {
		var e domain.EpisodeSummary
		if err := rows.Scan(&e.Number, &e.Title, &e.TotalQuestions, &e.FilledQuestions); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func seasonSummary(row seasonRow) domain.SeasonSummary {
	s := domain.SeasonSummary{Number: row.Number, EpisodeCount: row.EpisodeCount}
	if row.Year.Valid {
		year := int(row.Year.Int32)
		s.Year = &year
	}
	return s
}
