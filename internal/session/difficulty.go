package session

import "alphabettutor/internal/models"

const (
	// promoteStreak is the streak that moves a child up one tier
	promoteStreak = 5
	// demoteStruggles is the number of struggled letters that moves a child down one tier
	demoteStruggles = 3
)

// NextDifficulty is the difficulty transition function. Promotion is checked
// first; demotion is only considered when promotion did not apply.
func NextDifficulty(current models.Difficulty, streak, struggled int) models.Difficulty {
	if streak >= promoteStreak {
		return current.Promote()
	}
	if struggled >= demoteStruggles {
		return current.Demote()
	}
	return current
}
