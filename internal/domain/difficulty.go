package domain

import (
	"strconv"
	"strings"
)

// Difficulty is the share of a reference audience expected to answer a question correctly.
type Difficulty string

const (
	DifficultyNinety     Difficulty = "NINETY"
	DifficultyEighty     Difficulty = "EIGHTY"
	DifficultySeventy    Difficulty = "SEVENTY"
	DifficultySixty      Difficulty = "SIXTY"
	DifficultyFifty      Difficulty = "FIFTY"
	DifficultyFortyFive  Difficulty = "FORTYFIVE"
	DifficultyForty      Difficulty = "FORTY"
	DifficultyThirtyFive Difficulty = "THIRTYFIVE"
	DifficultyThirty     Difficulty = "THIRTY"
	DifficultyTwentyFive Difficulty = "TWENTYFIVE"
	DifficultyTwenty     Difficulty = "TWENTY"
	DifficultyFifteen    Difficulty = "FIFTEEN"
	DifficultyTen        Difficulty = "TEN"
	DifficultyFive       Difficulty = "FIVE"
	DifficultyOne        Difficulty = "ONE"
)

// DifficultyOrder is the standard fifteen-question ladder of an episode, easiest first.
var DifficultyOrder = []Difficulty{
	DifficultyNinety,
	DifficultyEighty,
	DifficultySeventy,
	DifficultySixty,
	DifficultyFifty,
	DifficultyFortyFive,
	DifficultyForty,
	DifficultyThirtyFive,
	DifficultyThirty,
	DifficultyTwentyFive,
	DifficultyTwenty,
	DifficultyFifteen,
	DifficultyTen,
	DifficultyFive,
	DifficultyOne,
}

var difficultyPercent = map[Difficulty]int{
	DifficultyNinety:     90,
	DifficultyEighty:     80,
	DifficultySeventy:    70,
	DifficultySixty:      60,
	DifficultyFifty:      50,
	DifficultyFortyFive:  45,
	DifficultyForty:      40,
	DifficultyThirtyFive: 35,
	DifficultyThirty:     30,
	DifficultyTwentyFive: 25,
	DifficultyTwenty:     20,
	DifficultyFifteen:    15,
	DifficultyTen:        10,
	DifficultyFive:       5,
	DifficultyOne:        1,
}

var difficultyRank = func() map[Difficulty]int {
	ranks := make(map[Difficulty]int, len(DifficultyOrder))
	for i, d := range DifficultyOrder {
		ranks[d] = i
	}
	return ranks
}()

// Rank returns the position of d in DifficultyOrder, or -1 for unknown levels.
func (d Difficulty) Rank() int {
	if rank, ok := difficultyRank[d]; ok {
		return rank
	}
	return -1
}

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	_, ok := difficultyRank[d]
	return ok
}

// Percent returns the numeric share (90 for NINETY). Unknown levels report 50.
func (d Difficulty) Percent() int {
	if p, ok := difficultyPercent[d]; ok {
		return p
	}
	return 50
}

// Label renders the level as shown to players, e.g. "45%".
func (d Difficulty) Label() string {
	if p, ok := difficultyPercent[d]; ok {
		return strconv.Itoa(p) + "%"
	}
	return string(d)
}

// ParseDifficulty accepts either the enum name ("FORTYFIVE") or its label ("45%").
func ParseDifficulty(raw string) (Difficulty, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if d := Difficulty(value); d.Valid() {
		return d, nil
	}
	if p, err := strconv.Atoi(strings.TrimSuffix(value, "%")); err == nil {
		for d, percent := range difficultyPercent {
			if percent == p {
				return d, nil
			}
		}
	}
	return "", ErrUnknownDifficulty
}
