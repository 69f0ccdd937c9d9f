package session

import (
	"alphabettutor/internal/alphabet"
	"alphabettutor/internal/models"
)

// Letter pools per tier, in teaching order
var (
	easyLetters   = []string{"A", "E", "I", "O", "U"}
	mediumLetters = []string{"B", "C", "D", "F", "G", "H", "L", "M", "N", "P", "R", "S", "T"}
	hardLetters   = []string{"J", "K", "Q", "V", "W", "X", "Y", "Z"}
)

// LetterPool returns a copy of the letters taught at a tier
func LetterPool(d models.Difficulty) []string {
	var pool []string
	switch d {
	case models.DifficultyMedium:
		pool = mediumLetters
	case models.DifficultyHard:
		pool = hardLetters
	default:
		pool = easyLetters
	}
	out := make([]string, len(pool))
	copy(out, pool)
	return out
}

// SelectNextLetter picks the next letter to teach. Struggled letters still
// open at this tier come first (in the order they were struggled with), then
// the first unfinished letter of the pool. A finished tier escalates to the
// next pool; a finished HARD tier starts over at "A".
func SelectNextLetter(d models.Difficulty, completed, struggled *alphabet.Set) string {
	available := make([]string, 0, len(mediumLetters))
	open := make(map[string]bool)
	for _, l := range LetterPool(d) {
		if completed != nil && completed.Contains(l) {
			continue
		}
		available = append(available, l)
		open[l] = true
	}

	if struggled != nil {
		for _, l := range struggled.Letters() {
			if open[l] {
				return l
			}
		}
	}

	if len(available) > 0 {
		return available[0]
	}

	switch d {
	case models.DifficultyEasy:
		return mediumLetters[0]
	case models.DifficultyMedium:
		return hardLetters[0]
	default:
		return "A"
	}
}
