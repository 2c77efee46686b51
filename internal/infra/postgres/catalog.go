package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"onepercent-quiz-service/internal/domain"
)

type countryModel struct {
	bun.BaseModel `bun:"table:countries"`

	ID   string `bun:"id,pk"`
	Slug string `bun:"slug"`
	Name string `bun:"name"`
}

type seasonModel struct {
	bun.BaseModel `bun:"table:seasons"`

	ID        string `bun:"id,pk"`
	CountryID string `bun:"country_id"`
	Number    int    `bun:"number"`
	Year      int    `bun:"year,nullzero"`
}

type episodeModel struct {
	bun.BaseModel `bun:"table:episodes"`

	ID       string `bun:"id,pk"`
	SeasonID string `bun:"season_id"`
	Number   int    `bun:"number"`
	Title    string `bun:"title"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID          string `bun:"id,pk"`
	EpisodeID   string `bun:"episode_id"`
	Text        string `bun:"question_text"`
	Difficulty  string `bun:"difficulty"`
	OrderInShow int    `bun:"order_in_show"`
	Active      bool   `bun:"is_active"`
}

// ProvisionRequest describes a new season for a country.
type ProvisionRequest struct {
	CountrySlug string
	CountryName string
	Episodes    int
	Year        int
}

// ProvisionResult reports what ProvisionSeason created.
type ProvisionResult struct {
	CountryID string
	Season    int
	Episodes  int
	Questions int
}

// Catalog writes quiz structure through bun.
type Catalog struct {
	db *bun.DB
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db}
}

// OpenBun opens a bun handle on the pg driver.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ProvisionSeason creates the next season of a country with placeholder
// episodes. Each episode gets one empty question per difficulty, ranked by
// the difficulty table, so nothing is playable until an editor fills it in.
func (c *Catalog) ProvisionSeason(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	slug := strings.ToLower(strings.TrimSpace(req.CountrySlug))
	if slug == "" {
		return ProvisionResult{}, errors.New("country slug is required")
	}
	if req.Episodes < 1 {
		return ProvisionResult{}, fmt.Errorf("episodes must be positive, got %d", req.Episodes)
	}
	name := strings.TrimSpace(req.CountryName)
	if name == "" {
		name = strings.ToUpper(slug)
	}

	var result ProvisionResult
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		country := &countryModel{ID: uuid.NewString(), Slug: slug, Name: name}
		if _, err := tx.NewInsert().Model(country).On("CONFLICT (slug) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("upsert country: %w", err)
		}
		if err := tx.NewSelect().Model(country).Where("slug = ?", slug).Scan(ctx); err != nil {
			return fmt.Errorf("select country: %w", err)
		}

		var last int
		if err := tx.NewSelect().
			Model((*seasonModel)(nil)).
			ColumnExpr("COALESCE(MAX(number), 0)").
			Where("country_id = ?", country.ID).
			Scan(ctx, &last); err != nil {
			return fmt.Errorf("next season number: %w", err)
		}

		season := &seasonModel{ID: uuid.NewString(), CountryID: country.ID, Number: last + 1, Year: req.Year}
		if _, err := tx.NewInsert().Model(season).Exec(ctx); err != nil {
			return fmt.Errorf("insert season: %w", err)
		}

		episodes := make([]episodeModel, req.Episodes)
		questions := make([]questionModel, 0, req.Episodes*len(domain.DifficultyOrder))
		for i := range episodes {
			episodes[i] = episodeModel{ID: uuid.NewString(), SeasonID: season.ID, Number: i + 1}
			for rank, d := range domain.DifficultyOrder {
				questions = append(questions, questionModel{
					ID:          uuid.NewString(),
					EpisodeID:   episodes[i].ID,
					Difficulty:  string(d),
					OrderInShow: rank + 1,
					Active:      true,
				})
			}
		}
		if _, err := tx.NewInsert().Model(&episodes).Exec(ctx); err != nil {
			return fmt.Errorf("insert episodes: %w", err)
		}
		if _, err := tx.NewInsert().Model(&questions).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}

		result = ProvisionResult{
			CountryID: country.ID,
			Season:    season.Number,
			Episodes:  len(episodes),
			Questions: len(questions),
		}
		return nil
	})
	return result, err
}
