package app

import (
	"context"
	"strings"

	"onepercent-quiz-service/internal/domain"
)

// SemanticChecker decides whether a typed answer means the same as the canonical one.
// Implementations must fail closed: any doubt or failure reports false.
type SemanticChecker interface {
	CheckEquivalence(ctx context.Context, userAnswer, correctAnswer, explanation string) bool
}

// Evaluator grades submissions. The checker is optional; without it free-text
// answers are graded by exact match only.
type Evaluator struct {
	checker SemanticChecker
}

func NewEvaluator(checker SemanticChecker) *Evaluator {
	return &Evaluator{checker: checker}
}

// Evaluate reports whether submission answers question correctly.
func (e *Evaluator) Evaluate(ctx context.Context, question domain.Question, submission domain.Submission) bool {
	if question.Mode() == domain.AnswerText {
		if submission.Mode != domain.AnswerText {
			return false
		}
		return e.MatchText(ctx, submission.Text, question.CanonicalAnswer(), question.Explanation)
	}

	if submission.Mode != domain.AnswerChoice {
		return false
	}
	if submission.Choice < 0 || submission.Choice >= len(question.Answers) {
		return false
	}
	return question.Answers[submission.Choice].Correct
}

// MatchText compares a typed answer with the canonical string, escalating to
// the semantic checker only when the normalized strings differ.
func (e *Evaluator) MatchText(ctx context.Context, userAnswer, correctAnswer, explanation string) bool {
	if normalizeAnswer(userAnswer) == normalizeAnswer(correctAnswer) {
		return true
	}
	if e == nil || e.checker == nil {
		return false
	}
	return e.checker.CheckEquivalence(ctx, userAnswer, correctAnswer, explanation)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
