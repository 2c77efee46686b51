package domain

// CountrySummary lists a country players can browse.
type CountrySummary struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	SeasonCount int    `json:"seasonCount"`
}

// SeasonSummary lists a season of a country with its episode count.
type SeasonSummary struct {
	Number       int  `json:"number"`
	Year         *int `json:"year,omitempty"`
	EpisodeCount int  `json:"episodeCount"`
}

// EpisodeSummary lists an episode of a season. FilledQuestions counts the
// questions that have been written; the rest are provisioned placeholders.
type EpisodeSummary struct {
	Number          int    `json:"number"`
	Title           string `json:"title,omitempty"`
	TotalQuestions  int    `json:"totalQuestions"`
	FilledQuestions int    `json:"filledQuestionsCount"`
}
