package app

import (
	"context"

	"github.com/google/uuid"
	"onepercent-quiz-service/internal/domain"
)

// SessionRepository abstracts how play sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	// Touch marks a session as still in play.
	Touch(sessionID string)
}

// EpisodeRepository loads episode content (from cache/backing store).
type EpisodeRepository interface {
	GetEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error)
}

// QuizService contains the quiz player use cases.
type QuizService struct {
	sessions        SessionRepository
	episodes        EpisodeRepository
	catalog         CatalogReader
	evaluator       *Evaluator
	questionSeconds int
	newID           func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithQuestionSeconds sets the per-question countdown.
func WithQuestionSeconds(seconds int) Option {
	return func(s *QuizService) { s.questionSeconds = seconds }
}

// WithIDGenerator replaces the UUID session ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *QuizService) { s.newID = newID }
}

func NewQuizService(store SessionRepository, episodes EpisodeRepository, evaluator *Evaluator, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:        store,
		episodes:        episodes,
		evaluator:       evaluator,
		questionSeconds: DefaultQuestionSeconds,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Episode returns the episode with its questions in play order.
func (s *QuizService) Episode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error) {
	episode, err := s.episodes.GetEpisode(ctx, key)
	if err != nil {
		return domain.Episode{}, err
	}
	episode.Questions = episode.PlayableQuestions()
	return episode, nil
}

// Start opens a play session. questionNumber selects the opening question by
// its show rank; zero or less opens on the first question.
func (s *QuizService) Start(ctx context.Context, key domain.EpisodeKey, questionNumber int) (*Session, error) {
	episode, err := s.Episode(ctx, key)
	if err != nil {
		return nil, err
	}

	start := 0
	if questionNumber > 0 {
		start = -1
		for i, q := range episode.Questions {
			if q.OrderInShow != nil && *q.OrderInShow == questionNumber {
				start = i
				break
			}
		}
		if start < 0 {
			return nil, domain.ErrQuestionNotFound
		}
	}

	session := NewSession(s.newID(), episode, s.evaluator, SessionOptions{
		QuestionSeconds: s.questionSeconds,
		StartIndex:      start,
	})
	s.sessions.Put(session)
	return session, nil
}

// Session looks up an open session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Touch records player activity on a session.
func (s *QuizService) Touch(sessionID string) {
	s.sessions.Touch(sessionID)
}

// End closes a session and forgets it. Grading still in flight is ignored.
func (s *QuizService) End(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// CheckAnswer grades a typed answer against a canonical one outside any session.
func (s *QuizService) CheckAnswer(ctx context.Context, userAnswer, correctAnswer, explanation string) bool {
	return s.evaluator.MatchText(ctx, userAnswer, correctAnswer, explanation)
}
