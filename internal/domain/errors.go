package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no play session exists for an ID.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrEpisodeNotFound indicates the episode content could not be loaded.
	ErrEpisodeNotFound = errors.New("episode not found")
	// ErrCountryNotFound indicates no country matches the requested slug.
	ErrCountryNotFound = errors.New("country not found")
	// ErrSeasonNotFound indicates the country has no season with the requested number.
	ErrSeasonNotFound = errors.New("season not found")
	// ErrQuestionNotFound indicates a requested question number is not part of the episode.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUnknownDifficulty is returned for values outside the difficulty ladder.
	ErrUnknownDifficulty = errors.New("unknown difficulty level")

	// Session transition guards. A guarded call leaves the session untouched.
	ErrNoQuestions         = errors.New("episode has no playable questions")
	ErrSessionComplete     = errors.New("quiz session already complete")
	ErrSessionClosed       = errors.New("quiz session closed")
	ErrAlreadyRevealed     = errors.New("answer already revealed for this question")
	ErrNotRevealed         = errors.New("answer not revealed yet")
	ErrNothingToSubmit     = errors.New("no answer selected")
	ErrWrongAnswerMode     = errors.New("input does not match the question's answer mode")
	ErrGradingInProgress   = errors.New("answer is being graded")
	ErrSubmissionDiscarded = errors.New("submission discarded after restart")
)
