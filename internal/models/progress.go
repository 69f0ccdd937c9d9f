package models

import "time"

// Star is awarded for a good attempt at a letter
type Star struct {
	ID         int64     `json:"id,omitempty"`
	Letter     string    `json:"letter"`
	Confidence float64   `json:"confidence"`
	EarnedAt   time.Time `json:"earned_at"`
}

// BadgeType identifies an achievement. Each type is earned at most once.
type BadgeType string

const (
	BadgeFirstLetter          BadgeType = "first_letter"
	BadgeFiveStreak           BadgeType = "five_streak"
	BadgeTenLetters           BadgeType = "ten_letters"
	BadgeAlphabetHalf         BadgeType = "alphabet_half"
	BadgeAlphabetComplete     BadgeType = "alphabet_complete"
	BadgePerfectPronunciation BadgeType = "perfect_pronunciation"
	BadgeHelper               BadgeType = "helper"
	BadgeExplorer             BadgeType = "explorer"
)

// Badge is an earned achievement
type Badge struct {
	Type        BadgeType `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earned_at"`
}

// ProgressRecord is the complete state of a progress tracker
type ProgressRecord struct {
	Stars                 []Star   `json:"stars"`
	Badges                []Badge  `json:"badges"`
	CurrentStreak         int      `json:"current_streak"`
	BestStreak            int      `json:"best_streak"`
	LettersMastered       []string `json:"letters_mastered"`
	TotalAttempts         int      `json:"total_attempts"`
	PerfectPronunciations int      `json:"perfect_pronunciations"`
}

// RecentStar is a star formatted for display
type RecentStar struct {
	Letter     string `json:"letter"`
	Confidence string `json:"confidence"`
	Time       string `json:"time"`
}

// BadgeView is a badge formatted for display
type BadgeView struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// ProgressSummary is the read-only aggregate shown to children and parents
type ProgressSummary struct {
	StarsEarned           int          `json:"stars_earned"`
	BadgesEarned          int          `json:"badges_earned"`
	CurrentStreak         int          `json:"current_streak"`
	BestStreak            int          `json:"best_streak"`
	LettersMastered       int          `json:"letters_mastered"`
	MasteredList          []string     `json:"mastered_list"`
	PerfectPronunciations int          `json:"perfect_pronunciations"`
	TotalAttempts         int          `json:"total_attempts"`
	RecentStars           []RecentStar `json:"recent_stars"`
	Badges                []BadgeView  `json:"badges"`
	Message               string       `json:"message"`
}
