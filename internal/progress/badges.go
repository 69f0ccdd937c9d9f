package progress

import (
	"time"

	"alphabettutor/internal/models"
)

type badgeInfo struct {
	name        string
	description string
	icon        string
}

var catalog = map[models.BadgeType]badgeInfo{
	models.BadgeFirstLetter:          {"First Steps", "Learned your first letter!", "🌟"},
	models.BadgeFiveStreak:           {"On Fire!", "5 correct answers in a row!", "🔥"},
	models.BadgeTenLetters:           {"Letter Expert", "Mastered 10 letters!", "🏆"},
	models.BadgeAlphabetHalf:         {"Halfway Hero", "Learned half the alphabet!", "🎯"},
	models.BadgeAlphabetComplete:     {"Alphabet Champion", "Mastered the entire alphabet!", "👑"},
	models.BadgePerfectPronunciation: {"Perfect Speaker", "Perfect pronunciation 10 times!", "🎤"},
	models.BadgeHelper:               {"Helpful Friend", "Used hints to learn better!", "💡"},
	models.BadgeExplorer:             {"Letter Explorer", "Tried all different activities!", "🔍"},
}

// badgeRule awards a badge once its condition holds
type badgeRule struct {
	badge models.BadgeType
	met   func(t *Tracker) bool
}

// unlockRules are evaluated in this order. Helper and explorer badges are
// in the catalogue but nothing awards them yet.
var unlockRules = []badgeRule{
	{models.BadgeFirstLetter, func(t *Tracker) bool { return t.mastered.Len() >= 1 }},
	{models.BadgeFiveStreak, func(t *Tracker) bool { return t.currentStreak >= 5 }},
	{models.BadgeTenLetters, func(t *Tracker) bool { return t.mastered.Len() >= 10 }},
	{models.BadgeAlphabetHalf, func(t *Tracker) bool { return t.mastered.Len() >= 13 }},
	{models.BadgeAlphabetComplete, func(t *Tracker) bool { return t.mastered.Len() >= 26 }},
	{models.BadgePerfectPronunciation, func(t *Tracker) bool { return t.perfectPronunciations >= 10 }},
}

// NewBadge builds a badge of the given type from the catalogue
func NewBadge(badgeType models.BadgeType, earnedAt time.Time) (models.Badge, bool) {
	info, ok := catalog[badgeType]
	if !ok {
		return models.Badge{}, false
	}
	return models.Badge{
		Type:        badgeType,
		Name:        info.name,
		Description: info.description,
		Icon:        info.icon,
		EarnedAt:    earnedAt,
	}, true
}

// BadgeTypes lists every badge in the catalogue
func BadgeTypes() []models.BadgeType {
	return []models.BadgeType{
		models.BadgeFirstLetter,
		models.BadgeFiveStreak,
		models.BadgeTenLetters,
		models.BadgeAlphabetHalf,
		models.BadgeAlphabetComplete,
		models.BadgePerfectPronunciation,
		models.BadgeHelper,
		models.BadgeExplorer,
	}
}
