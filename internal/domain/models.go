package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Layout controls how question images and text are composed.
type Layout string

const (
	LayoutVertical   Layout = "VERTICAL"
	LayoutHorizontal Layout = "HORIZONTAL"
)

// ParseLayout maps persisted values to a Layout, defaulting to vertical.
func ParseLayout(raw string) Layout {
	if Layout(strings.ToUpper(strings.TrimSpace(raw))) == LayoutHorizontal {
		return LayoutHorizontal
	}
	return LayoutVertical
}

// AnswerMode tells whether a question is answered by picking a choice or typing text.
type AnswerMode string

const (
	AnswerChoice AnswerMode = "choice"
	AnswerText   AnswerMode = "text"
)

// Answer is one candidate answer of a question.
type Answer struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Image      string `json:"image,omitempty"`
	Correct    bool   `json:"isCorrect"`
	OrderIndex int    `json:"orderIndex"`
}

// Question is read-only quiz content. A question with exactly one answer is
// a free-text question and that answer's text is the canonical string.
type Question struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Images      []string   `json:"images,omitempty"`
	ExtraText   string     `json:"extraText,omitempty"`
	Layout      Layout     `json:"layout"`
	Difficulty  Difficulty `json:"difficulty"`
	Explanation string     `json:"explanation"`
	OrderInShow *int       `json:"orderInShow,omitempty"`
	Active      bool       `json:"active"`
	Answers     []Answer   `json:"answers"`
}

// Mode reports how the question is answered.
func (q Question) Mode() AnswerMode {
	if len(q.Answers) == 1 {
		return AnswerText
	}
	return AnswerChoice
}

// Filled reports whether the question has been written (placeholders have empty text).
func (q Question) Filled() bool {
	return strings.TrimSpace(q.Text) != ""
}

// Playable reports whether the question is shown to players.
func (q Question) Playable() bool {
	return q.Active && q.Filled()
}

// CorrectIndex returns the index of the first correct answer, or -1.
func (q Question) CorrectIndex() int {
	for i, a := range q.Answers {
		if a.Correct {
			return i
		}
	}
	return -1
}

// CanonicalAnswer returns the expected answer text.
func (q Question) CanonicalAnswer() string {
	if q.Mode() == AnswerText {
		return q.Answers[0].Text
	}
	if i := q.CorrectIndex(); i >= 0 {
		return q.Answers[i].Text
	}
	return ""
}

// SplitImages turns the comma-joined image column into a list.
func SplitImages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	images := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			images = append(images, p)
		}
	}
	return images
}

// PlayOrder sorts questions by OrderInShow. Questions without a rank keep
// their relative order and come after ranked ones; ties keep input order.
func PlayOrder(questions []Question) []Question {
	ordered := append([]Question(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].OrderInShow, ordered[j].OrderInShow
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return ordered
}

// SortByDifficulty orders questions easiest first, as the admin view lists them.
func SortByDifficulty(questions []Question) []Question {
	ordered := append([]Question(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankOrLast(ordered[i].Difficulty) < rankOrLast(ordered[j].Difficulty)
	})
	return ordered
}

func rankOrLast(d Difficulty) int {
	if r := d.Rank(); r >= 0 {
		return r
	}
	return len(DifficultyOrder)
}

// EpisodeKey addresses an episode the way players navigate to it.
type EpisodeKey struct {
	Country string `json:"country"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

func (k EpisodeKey) String() string {
	return fmt.Sprintf("%s/%d/%d", k.Country, k.Season, k.Episode)
}

// Episode is a numbered group of questions within a season.
type Episode struct {
	ID          string     `json:"id"`
	Key         EpisodeKey `json:"key"`
	Title       string     `json:"title,omitempty"`
	CountryName string     `json:"countryName,omitempty"`
	Questions   []Question `json:"questions"`
}

// PlayableQuestions returns active, written questions in play order.
func (e Episode) PlayableQuestions() []Question {
	playable := make([]Question, 0, len(e.Questions))
	for _, q := range e.Questions {
		if q.Playable() {
			playable = append(playable, q)
		}
	}
	return PlayOrder(playable)
}

// Submission is a player's committed response to one question.
type Submission struct {
	Mode   AnswerMode `json:"mode"`
	Choice int        `json:"choice"`
	Text   string     `json:"text,omitempty"`
}

func ChoiceSubmission(index int) Submission {
	return Submission{Mode: AnswerChoice, Choice: index}
}

func TextSubmission(text string) Submission {
	return Submission{Mode: AnswerText, Choice: -1, Text: text}
}

// Outcome records how a submitted question was graded.
type Outcome struct {
	QuestionID string     `json:"questionId"`
	Submission Submission `json:"submission"`
	Correct    bool       `json:"correct"`
}

// Summary is the completion result of a session.
type Summary struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
	SuccessRate    int `json:"successRate"`
}

// NewSummary computes the success rate as a rounded percentage; zero questions yield 0.
func NewSummary(score, total int) Summary {
	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(score) / float64(total) * 100))
	}
	return Summary{Score: score, TotalQuestions: total, SuccessRate: rate}
}
