package app

import (
	"context"
	"sync"
	"time"

	"onepercent-quiz-service/internal/domain"
)

// DefaultQuestionSeconds is the countdown shown for each question.
const DefaultQuestionSeconds = 30

// Phase is the lifecycle stage of a play session.
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

// SessionOptions tunes a new session.
type SessionOptions struct {
	// QuestionSeconds is the countdown length; zero means DefaultQuestionSeconds.
	QuestionSeconds int
	// StartIndex is the 0-based question the session opens on and restarts from.
	StartIndex int
	Now        func() time.Time
}

// Session is one player's run through an episode.
//
// The countdown is cosmetic: reaching zero never submits or reveals. Ticks only
// count down while a question is open (in progress and not revealed).
type Session struct {
	id        string
	episode   domain.Episode
	questions []domain.Question
	evaluator *Evaluator
	duration  int
	start     int
	createdAt time.Time

	mu          sync.Mutex
	phase       Phase
	index       int
	revealed    bool
	grading     bool
	closed      bool
	generation  uint64
	choice      int
	text        string
	remaining   int
	score       int
	outcomes    []domain.Outcome
	subscribers map[chan Event]struct{}
}

// NewSession builds a session over the episode's playable questions.
func NewSession(id string, episode domain.Episode, evaluator *Evaluator, opts SessionOptions) *Session {
	if evaluator == nil {
		evaluator = NewEvaluator(nil)
	}
	duration := opts.QuestionSeconds
	if duration <= 0 {
		duration = DefaultQuestionSeconds
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	questions := episode.PlayableQuestions()
	start := opts.StartIndex
	if start < 0 || start >= len(questions) {
		start = 0
	}

	s := &Session{
		id:          id,
		episode:     episode,
		questions:   questions,
		evaluator:   evaluator,
		duration:    duration,
		start:       start,
		createdAt:   now(),
		subscribers: make(map[chan Event]struct{}),
	}
	s.resetLocked()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) resetLocked() {
	s.generation++
	s.phase = PhaseInProgress
	if len(s.questions) == 0 {
		s.phase = PhaseEmpty
	}
	s.index = s.start
	s.revealed = false
	s.grading = false
	s.choice = -1
	s.text = ""
	s.remaining = s.duration
	s.score = 0
	s.outcomes = nil
}

func (s *Session) checkOpenLocked() error {
	switch {
	case s.closed:
		return domain.ErrSessionClosed
	case s.phase == PhaseEmpty:
		return domain.ErrNoQuestions
	case s.phase == PhaseComplete:
		return domain.ErrSessionComplete
	}
	return nil
}

// checkEditableLocked guards input changes on the current question.
func (s *Session) checkEditableLocked(mode domain.AnswerMode) error {
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if s.revealed {
		return domain.ErrAlreadyRevealed
	}
	if s.grading {
		return domain.ErrGradingInProgress
	}
	if s.questions[s.index].Mode() != mode {
		return domain.ErrWrongAnswerMode
	}
	return nil
}

// SelectChoice replaces the pending choice on a multiple-choice question.
func (s *Session) SelectChoice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(domain.AnswerChoice); err != nil {
		return err
	}
	s.choice = index
	return nil
}

// TypeAnswer replaces the pending text on a free-text question.
func (s *Session) TypeAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(domain.AnswerText); err != nil {
		return err
	}
	s.text = text
	return nil
}

// Submit grades the pending input and reveals the answer. The lock is not held
// while grading, so ticks keep flowing; a second Submit meanwhile is rejected.
// If the session is restarted or closed before grading finishes the result is dropped.
func (s *Session) Submit(ctx context.Context) (Reveal, error) {
	s.mu.Lock()
	if err := s.checkOpenLocked(); err != nil {
		s.mu.Unlock()
		return Reveal{}, err
	}
	if s.revealed {
		s.mu.Unlock()
		return Reveal{}, domain.ErrAlreadyRevealed
	}
	if s.grading {
		s.mu.Unlock()
		return Reveal{}, domain.ErrGradingInProgress
	}
	question := s.questions[s.index]
	submission, ok := s.pendingLocked(question)
	if !ok {
		s.mu.Unlock()
		return Reveal{}, domain.ErrNothingToSubmit
	}
	s.grading = true
	generation := s.generation
	s.mu.Unlock()

	correct := s.evaluator.Evaluate(ctx, question, submission)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Reveal{}, domain.ErrSessionClosed
	}
	if s.generation != generation {
		return Reveal{}, domain.ErrSubmissionDiscarded
	}
	s.grading = false
	s.revealed = true
	if correct {
		s.score++
	}
	s.outcomes = append(s.outcomes, domain.Outcome{
		QuestionID: question.ID,
		Submission: submission,
		Correct:    correct,
	})

	correctIndex := -1
	if question.Mode() == domain.AnswerChoice {
		correctIndex = question.CorrectIndex()
	}
	reveal := Reveal{
		QuestionID:    question.ID,
		Correct:       correct,
		CorrectIndex:  correctIndex,
		CorrectAnswer: question.CanonicalAnswer(),
		Explanation:   question.Explanation,
		Score:         s.score,
	}
	s.broadcastLocked(Event{Type: EventReveal, Payload: reveal})
	return reveal, nil
}

func (s *Session) pendingLocked(question domain.Question) (domain.Submission, bool) {
	if question.Mode() == domain.AnswerText {
		if normalizeAnswer(s.text) == "" {
			return domain.Submission{}, false
		}
		return domain.TextSubmission(s.text), true
	}
	if s.choice < 0 {
		return domain.Submission{}, false
	}
	return domain.ChoiceSubmission(s.choice), true
}

// Advance moves past a revealed question, completing the session after the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if !s.revealed {
		return domain.ErrNotRevealed
	}

	if s.index >= len(s.questions)-1 {
		s.phase = PhaseComplete
		summary := domain.NewSummary(s.score, len(s.questions))
		s.broadcastLocked(Event{Type: EventComplete, Payload: summary})
		return nil
	}

	s.index++
	s.revealed = false
	s.choice = -1
	s.text = ""
	s.remaining = s.duration
	s.broadcastLocked(Event{Type: EventState, Payload: s.snapshotLocked()})
	return nil
}

// Tick counts the timer down by one second. It reports false when the timer is
// not running (revealed, finished, empty or already at zero).
func (s *Session) Tick() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != PhaseInProgress || s.revealed || s.remaining <= 0 {
		return s.remaining, false
	}
	s.remaining--
	s.broadcastLocked(Event{Type: EventTick, Payload: TickPayload{Remaining: s.remaining, Duration: s.duration}})
	return s.remaining, true
}

// Restart re-initializes the session to its opening question. Any grading in
// flight is discarded when it returns.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.resetLocked()
	s.broadcastLocked(Event{Type: EventState, Payload: s.snapshotLocked()})
	return nil
}

// Close ends the session and its subscriptions. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Summary returns the completion summary once the session is complete.
func (s *Session) Summary() (domain.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseComplete {
		return domain.Summary{}, false
	}
	return domain.NewSummary(s.score, len(s.questions)), true
}

// Outcomes returns the graded submissions so far.
func (s *Session) Outcomes() []domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Outcome(nil), s.outcomes...)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Episode:   s.episode.Key,
		Phase:     s.phase,
		Index:     s.index,
		Total:     len(s.questions),
		Revealed:  s.revealed,
		Grading:   s.grading,
		Text:      s.text,
		Remaining: s.remaining,
		Duration:  s.duration,
		Score:     s.score,
	}
	if s.phase == PhaseInProgress {
		view := NewQuestionView(s.questions[s.index], s.index, len(s.questions))
		snap.Question = &view
		if s.choice >= 0 {
			choice := s.choice
			snap.SelectedChoice = &choice
		}
	}
	if s.phase == PhaseComplete {
		summary := domain.NewSummary(s.score, len(s.questions))
		snap.Summary = &summary
	}
	return snap
}

// Subscribe returns a channel of session events, primed with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- Event{Type: EventState, Payload: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
