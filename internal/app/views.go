package app

import "onepercent-quiz-service/internal/domain"

var answerLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// AnswerView is a choice as shown to players, without its correctness flag.
type AnswerView struct {
	Letter string `json:"letter,omitempty"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
}

// QuestionView is what a player sees before the answer is revealed.
type QuestionView struct {
	ID              string            `json:"id"`
	Number          int               `json:"number"`
	Total           int               `json:"total"`
	Text            string            `json:"text"`
	Images          []string          `json:"images,omitempty"`
	ExtraText       string            `json:"extraText,omitempty"`
	Layout          domain.Layout     `json:"layout"`
	Difficulty      domain.Difficulty `json:"difficulty"`
	DifficultyLabel string            `json:"difficultyLabel"`
	Mode            domain.AnswerMode `json:"mode"`
	Answers         []AnswerView      `json:"answers,omitempty"`
}

// NewQuestionView hides correctness data. Free-text questions expose no answers at all.
func NewQuestionView(q domain.Question, index, total int) QuestionView {
	view := QuestionView{
		ID:              q.ID,
		Number:          index + 1,
		Total:           total,
		Text:            q.Text,
		Images:          q.Images,
		ExtraText:       q.ExtraText,
		Layout:          q.Layout,
		Difficulty:      q.Difficulty,
		DifficultyLabel: q.Difficulty.Label(),
		Mode:            q.Mode(),
	}
	if view.Mode == domain.AnswerChoice {
		view.Answers = make([]AnswerView, len(q.Answers))
		for i, a := range q.Answers {
			letter := ""
			if i < len(answerLetters) {
				letter = answerLetters[i]
			}
			view.Answers[i] = AnswerView{Letter: letter, Text: a.Text, Image: a.Image}
		}
	}
	return view
}

// EpisodeView is the public listing of an episode's playable questions.
type EpisodeView struct {
	Key         domain.EpisodeKey `json:"key"`
	Title       string            `json:"title,omitempty"`
	CountryName string            `json:"countryName,omitempty"`
	Questions   []QuestionView    `json:"questions"`
}

func NewEpisodeView(episode domain.Episode) EpisodeView {
	questions := episode.PlayableQuestions()
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = NewQuestionView(q, i, len(questions))
	}
	return EpisodeView{
		Key:         episode.Key,
		Title:       episode.Title,
		CountryName: episode.CountryName,
		Questions:   views,
	}
}

// Reveal is published once a submission has been graded.
type Reveal struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectIndex  int    `json:"correctIndex"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Score         int    `json:"score"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	SessionID      string            `json:"sessionId"`
	Episode        domain.EpisodeKey `json:"episode"`
	Phase          Phase             `json:"phase"`
	Index          int               `json:"index"`
	Total          int               `json:"total"`
	Question       *QuestionView     `json:"question,omitempty"`
	Revealed       bool              `json:"revealed"`
	Grading        bool              `json:"grading"`
	SelectedChoice *int              `json:"selectedChoice,omitempty"`
	Text           string            `json:"text,omitempty"`
	Remaining      int               `json:"remaining"`
	Duration       int               `json:"duration"`
	Score          int               `json:"score"`
	Summary        *domain.Summary   `json:"summary,omitempty"`
}

// EventType names a session event.
type EventType string

const (
	EventState    EventType = "state"
	EventTick     EventType = "tick"
	EventReveal   EventType = "reveal"
	EventComplete EventType = "complete"
)

// Event is pushed to session subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// TickPayload carries the countdown after a tick.
type TickPayload struct {
	Remaining int `json:"remaining"`
	Duration  int `json:"duration"`
}
