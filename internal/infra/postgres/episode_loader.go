package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jinzhu/copier"
	"onepercent-quiz-service/internal/domain"
)

// EpisodeLoader loads episodes and their playable questions from Postgres.
type EpisodeLoader struct {
	pool *pgxpool.Pool
}

func NewEpisodeLoader(pool *pgxpool.Pool) *EpisodeLoader {
	return &EpisodeLoader{pool: pool}
}

type episodeRow struct {
	ID          string
	Season      int
	Episode     int
	Title       string
	Country     string
	CountryName string
}

type questionRow struct {
	ID          string
	Text        string
	RawImages   string
	ExtraText   string
	RawLayout   string
	Difficulty  string
	Explanation string
	RawOrder    sql.NullInt32
	Active      bool
}

type answerRow struct {
	ID         string
	QuestionID string
	Text       string
	Image      string
	Correct    bool
	OrderIndex int
}

const episodeQuery = `
SELECT e.id, s.number, e.number, e.title, c.slug, c.name
FROM episodes e
JOIN seasons s ON s.id = e.season_id
JOIN countries c ON c.id = s.country_id
WHERE lower(c.slug) = lower($1) AND s.number = $2 AND e.number = $3`

const questionsQuery = `
SELECT id, question_text, question_images, question_extra_text, layout,
       difficulty, explanation, order_in_show, is_active
FROM questions
WHERE episode_id = $1 AND is_active AND question_text <> ''
ORDER BY order_in_show ASC NULLS LAST, created_at ASC`

const answersQuery = `
SELECT id, question_id, answer_text, answer_image, is_correct, order_index
FROM answers
WHERE question_id = ANY($1)
ORDER BY question_id, order_index ASC`

func (l *EpisodeLoader) LoadEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error) {
	var header episodeRow
	err := l.pool.QueryRow(ctx, episodeQuery, key.Country, key.Season, key.Episode).Scan(
		&header.ID, &header.Season, &header.Episode, &header.Title, &header.Country, &header.CountryName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Episode{}, domain.ErrEpisodeNotFound
	}
	if err != nil {
		return domain.Episode{}, fmt.Errorf("load episode %s: %w", key, err)
	}

	questions, err := l.loadQuestions(ctx, header.ID)
	if err != nil {
		return domain.Episode{}, err
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	answers, err := l.loadAnswers(ctx, ids)
	if err != nil {
		return domain.Episode{}, err
	}
	return assembleEpisode(header, questions, answers)
}

func (l *EpisodeLoader) loadQuestions(ctx context.Context, episodeID string) ([]questionRow, error) {
	rows, err := l.pool.Query(ctx, questionsQuery, episodeID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []questionRow
	for rows.Next() {
		var r questionRow
		if err := rows.Scan(&r.ID, &r.Text, &r.RawImages, &r.ExtraText, &r.RawLayout,
			&r.Difficulty, &r.Explanation, &r.RawOrder, &r.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *EpisodeLoader) loadAnswers(ctx context.Context, questionIDs []string) ([]answerRow, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx, answersQuery, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	var out []answerRow
	for rows.Next() {
		var r answerRow
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.Text, &r.Image, &r.Correct, &r.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// assembleEpisode maps rows onto domain types. Question order is kept as queried.
func assembleEpisode(header episodeRow, questions []questionRow, answers []answerRow) (domain.Episode, error) {
	episode := domain.Episode{
		ID:          header.ID,
		Key:         domain.EpisodeKey{Country: header.Country, Season: header.Season, Episode: header.Episode},
		Title:       header.Title,
		CountryName: header.CountryName,
		Questions:   make([]domain.Question, 0, len(questions)),
	}

	byQuestion := make(map[string][]domain.Answer, len(questions))
	for _, row := range answers {
		var a domain.Answer
		if err := copier.Copy(&a, &row); err != nil {
			return domain.Episode{}, fmt.Errorf("map answer %s: %w", row.ID, err)
		}
		byQuestion[row.QuestionID] = append(byQuestion[row.QuestionID], a)
	}

	for _, row := range questions {
		var q domain.Question
		if err := copier.Copy(&q, &row); err != nil {
			return domain.Episode{}, fmt.Errorf("map question %s: %w", row.ID, err)
		}
		q.Images = domain.SplitImages(row.RawImages)
		q.Layout = domain.ParseLayout(row.RawLayout)
		if row.RawOrder.Valid {
			order := int(row.RawOrder.Int32)
			q.OrderInShow = &order
		}
		q.Answers = byQuestion[row.ID]
		episode.Questions = append(episode.Questions, q)
	}
	return episode, nil
}
