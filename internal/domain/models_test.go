package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rank(n int) *int { return &n }

func ids(questions []Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.ID
	}
	return out
}

func TestPlayOrderIsStable(t *testing.T) {
	questions := []Question{
		{ID: "c", OrderInShow: rank(3)},
		{ID: "none-1"},
		{ID: "a", OrderInShow: rank(1)},
		{ID: "b1", OrderInShow: rank(2)},
		{ID: "none-2"},
		{ID: "b2", OrderInShow: rank(2)},
	}

	ordered := PlayOrder(questions)
	require.Equal(t, []string{"a", "b1", "b2", "c", "none-1", "none-2"}, ids(ordered))
	require.Equal(t, "c", questions[0].ID, "input must not be reordered")
}

func TestPlayOrderWithoutRanksKeepsNaturalOrder(t *testing.T) {
	questions := []Question{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	require.Equal(t, []string{"x", "y", "z"}, ids(PlayOrder(questions)))
}

func TestSortByDifficulty(t *testing.T) {
	questions := []Question{
		{ID: "hard", Difficulty: DifficultyOne},
		{ID: "odd", Difficulty: "UNKNOWN"},
		{ID: "easy", Difficulty: DifficultyNinety},
		{ID: "mid", Difficulty: DifficultyFifty},
	}
	require.Equal(t, []string{"easy", "mid", "hard", "odd"}, ids(SortByDifficulty(questions)))
}

func TestQuestionMode(t *testing.T) {
	text := Question{Answers: []Answer{{Text: "One Thousand", Correct: true}}}
	require.Equal(t, AnswerText, text.Mode())
	require.Equal(t, "One Thousand", text.CanonicalAnswer())

	choice := Question{Answers: []Answer{{Text: "a"}, {Text: "b", Correct: true}}}
	require.Equal(t, AnswerChoice, choice.Mode())
	require.Equal(t, 1, choice.CorrectIndex())
	require.Equal(t, "b", choice.CanonicalAnswer())

	require.Equal(t, -1, Question{}.CorrectIndex())
}

func TestPlayableQuestionsSkipsPlaceholders(t *testing.T) {
	episode := Episode{Questions: []Question{
		{ID: "q2", Text: "second", Active: true, OrderInShow: rank(2)},
		{ID: "blank", Text: "   ", Active: true, OrderInShow: rank(1)},
		{ID: "hidden", Text: "inactive", Active: false, OrderInShow: rank(3)},
		{ID: "q1", Text: "first", Active: true, OrderInShow: rank(1)},
	}}
	require.Equal(t, []string{"q1", "q2"}, ids(episode.PlayableQuestions()))
}

func TestSplitImages(t *testing.T) {
	require.Nil(t, SplitImages(""))
	require.Equal(t, []string{"a.png", "b.png"}, SplitImages(" a.png, ,b.png "))
}

func TestParseLayout(t *testing.T) {
	require.Equal(t, LayoutHorizontal, ParseLayout("horizontal"))
	require.Equal(t, LayoutVertical, ParseLayout(""))
	require.Equal(t, LayoutVertical, ParseLayout("diagonal"))
}

func TestNewSummary(t *testing.T) {
	require.Equal(t, Summary{Score: 2, TotalQuestions: 3, SuccessRate: 67}, NewSummary(2, 3))
	require.Equal(t, Summary{Score: 1, TotalQuestions: 8, SuccessRate: 13}, NewSummary(1, 8))
	require.Equal(t, Summary{}, NewSummary(0, 0))
	require.Equal(t, 100, NewSummary(15, 15).SuccessRate)
}
