// Package progress keeps the gamification bookkeeping of a learner: stars,
// streaks, mastered letters and badges. It has its own lifecycle and is never
// reset together with a session.
package progress

import (
	"errors"
	"fmt"
	"time"

	"alphabettutor/internal/alphabet"
	"alphabettutor/internal/models"
)

var (
	// ErrInvalidLetter is returned when a star is requested for something that is not a letter
	ErrInvalidLetter = errors.New("invalid letter")
	// ErrInvalidConfidence is returned for confidence values outside [0, 1]
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

const (
	starThreshold    = 0.7
	streakThreshold  = 0.8
	perfectThreshold = 0.95
	resetBelow       = 0.6

	recentStarCount = 5
)

// Award is the outcome of one pronunciation attempt
type Award struct {
	// Star is nil when the attempt did not earn one
	Star *models.Star
	// Badges holds only the badges unlocked by this attempt
	Badges []models.Badge
	// NewlyMastered is set when the attempt mastered the letter for the first time
	NewlyMastered bool
}

// Tracker is not safe for concurrent use
type Tracker struct {
	stars                 []models.Star
	badges                []models.Badge
	earned                map[models.BadgeType]bool
	currentStreak         int
	bestStreak            int
	mastered              *alphabet.Set
	totalAttempts         int
	perfectPronunciations int
	now                   func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		earned:   make(map[models.BadgeType]bool),
		mastered: alphabet.NewSet(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FromRecord rebuilds a tracker from stored progress
func FromRecord(rec models.ProgressRecord, opts ...Option) *Tracker {
	t := NewTracker(opts...)
	t.stars = append(t.stars, rec.Stars...)
	for _, b := range rec.Badges {
		if t.earned[b.Type] {
			continue
		}
		// Stored badges carry only type and time
		if full, ok := NewBadge(b.Type, b.EarnedAt); ok && b.Name == "" {
			b = full
		}
		t.earned[b.Type] = true
		t.badges = append(t.badges, b)
	}
	for _, l := range rec.LettersMastered {
		if l, ok := alphabet.Normalize(l); ok {
			t.mastered.Add(l)
		}
	}
	t.currentStreak = max(rec.CurrentStreak, 0)
	t.bestStreak = max(rec.BestStreak, t.currentStreak)
	t.totalAttempts = max(rec.TotalAttempts, 0)
	t.perfectPronunciations = max(rec.PerfectPronunciations, 0)
	return t
}

// AwardStar scores one attempt at a letter. A star needs 0.7; the streak and
// mastery need 0.8; 0.95 counts as a perfect pronunciation. A star under 0.8
// or an attempt under 0.6 breaks the streak.
func (t *Tracker) AwardStar(letter string, confidence float64) (Award, error) {
	l, ok := alphabet.Normalize(letter)
	if !ok {
		return Award{}, fmt.Errorf("%w: %q", ErrInvalidLetter, letter)
	}
	if confidence < 0 || confidence > 1 {
		return Award{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, confidence)
	}

	t.totalAttempts++

	var award Award
	if confidence >= starThreshold {
		star := models.Star{Letter: l, Confidence: confidence, EarnedAt: t.now()}
		t.stars = append(t.stars, star)
		award.Star = &star

		if confidence >= streakThreshold {
			t.currentStreak++
			t.bestStreak = max(t.bestStreak, t.currentStreak)
			if confidence >= perfectThreshold {
				t.perfectPronunciations++
			}
			award.NewlyMastered = t.mastered.Add(l)
		} else {
			t.currentStreak = 0
		}

		award.Badges = t.CheckBadgeUnlock()
	}

	if confidence < resetBelow {
		t.currentStreak = 0
	}

	return award, nil
}

// CheckBadgeUnlock awards every badge whose condition now holds and returns
// only the ones that were not earned before.
func (t *Tracker) CheckBadgeUnlock() []models.Badge {
	var unlocked []models.Badge
	for _, rule := range unlockRules {
		if t.earned[rule.badge] || !rule.met(t) {
			continue
		}
		badge, _ := NewBadge(rule.badge, t.now())
		t.earned[rule.badge] = true
		t.badges = append(t.badges, badge)
		unlocked = append(unlocked, badge)
	}
	return unlocked
}

// Summary returns the read-only aggregate shown to the child
func (t *Tracker) Summary() models.ProgressSummary {
	recent := t.stars
	if len(recent) > recentStarCount {
		recent = recent[len(recent)-recentStarCount:]
	}
	recentStars := make([]models.RecentStar, 0, len(recent))
	for _, s := range recent {
		recentStars = append(recentStars, models.RecentStar{
			Letter:     s.Letter,
			Confidence: fmt.Sprintf("%.0f%%", s.Confidence*100),
			Time:       s.EarnedAt.Format("15:04"),
		})
	}

	badges := make([]models.BadgeView, 0, len(t.badges))
	for _, b := range t.badges {
		badges = append(badges, models.BadgeView{Name: b.Name, Icon: b.Icon, Description: b.Description})
	}

	return models.ProgressSummary{
		StarsEarned:           len(t.stars),
		BadgesEarned:          len(t.badges),
		CurrentStreak:         t.currentStreak,
		BestStreak:            t.bestStreak,
		LettersMastered:       t.mastered.Len(),
		MasteredList:          t.mastered.Letters(),
		PerfectPronunciations: t.perfectPronunciations,
		TotalAttempts:         t.totalAttempts,
		RecentStars:           recentStars,
		Badges:                badges,
		Message:               t.MotivationalMessage(),
	}
}

// MotivationalMessage picks an encouragement based on the streak, then on mastery
func (t *Tracker) MotivationalMessage() string {
	mastered := t.mastered.Len()
	switch {
	case t.currentStreak >= 10:
		return "🌟 You're UNSTOPPABLE! Amazing streak!"
	case t.currentStreak >= 5:
		return "🔥 You're on fire! Keep it going!"
	case t.currentStreak >= 3:
		return "✨ Great job! You're doing wonderfully!"
	case mastered >= 20:
		return "🏆 Almost there! You've learned so many letters!"
	case mastered >= 10:
		return "🎯 Fantastic progress! You're a quick learner!"
	case mastered >= 5:
		return "⭐ You're doing great! Keep learning!"
	default:
		return "🌈 Every letter is an adventure! Let's explore!"
	}
}

// Record exports the tracker for storage
func (t *Tracker) Record() models.ProgressRecord {
	stars := make([]models.Star, len(t.stars))
	copy(stars, t.stars)
	badges := make([]models.Badge, len(t.badges))
	copy(badges, t.badges)
	return models.ProgressRecord{
		Stars:                 stars,
		Badges:                badges,
		CurrentStreak:         t.currentStreak,
		BestStreak:            t.bestStreak,
		LettersMastered:       t.mastered.Letters(),
		TotalAttempts:         t.totalAttempts,
		PerfectPronunciations: t.perfectPronunciations,
	}
}

// HasBadge reports whether a badge type has been earned
func (t *Tracker) HasBadge(badgeType models.BadgeType) bool {
	return t.earned[badgeType]
}

// CurrentStreak returns the number of consecutive strong attempts
func (t *Tracker) CurrentStreak() int {
	return t.currentStreak
}

// Reset zeroes every counter and clears all lists
func (t *Tracker) Reset() {
	t.stars = nil
	t.badges = nil
	t.earned = make(map[models.BadgeType]bool)
	t.currentStreak = 0
	t.bestStreak = 0
	t.mastered.Clear()
	t.totalAttempts = 0
	t.perfectPronunciations = 0
}
