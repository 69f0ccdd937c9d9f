package repository

import (
	"context"
	"fmt"
	"time"

	"alphabettutor/internal/database"
	"alphabettutor/internal/models"
)

// Counters are the running totals kept on the profile row
type Counters struct {
	CurrentStreak         int
	BestStreak            int
	TotalAttempts         int
	PerfectPronunciations int
}

// CountersOf extracts the counters from a progress record
func CountersOf(rec models.ProgressRecord) Counters {
	return Counters{
		CurrentStreak:         rec.CurrentStreak,
		BestStreak:            rec.BestStreak,
		TotalAttempts:         rec.TotalAttempts,
		PerfectPronunciations: rec.PerfectPronunciations,
	}
}

// Attempt is everything one pronunciation attempt changed
type Attempt struct {
	Star           *models.Star
	Badges         []models.Badge
	MasteredLetter string
	Counters       Counters
}

// ProgressRepository stores stars, badges and mastered letters per profile
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// RecordAttempt stores one attempt atomically and returns the new star's ID (0 when no star)
func (r *ProgressRepository) RecordAttempt(ctx context.Context, profileID string, a Attempt) (int64, error) {
	var starID int64
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if a.Star != nil {
			id, err := insertStar(ctx, tx, profileID, *a.Star)
			if err != nil {
				return err
			}
			starID = id
		}
		if a.MasteredLetter != "" {
			if err := insertMastered(ctx, tx, profileID, a.MasteredLetter, time.Now().UTC()); err != nil {
				return err
			}
		}
		for _, b := range a.Badges {
			if err := insertBadge(ctx, tx, profileID, b); err != nil {
				return err
			}
		}
		return updateCounters(ctx, tx, profileID, a.Counters)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return starID, nil
}

// Load returns the stored progress of a profile
func (r *ProgressRepository) Load(ctx context.Context, profileID string) (models.ProgressRecord, error) {
	return loadProgress(ctx, r.db, profileID)
}

// Import writes a complete progress record for a profile that has none yet
func (r *ProgressRepository) Import(ctx context.Context, profileID string, rec models.ProgressRecord) error {
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, s := range rec.Stars {
			if _, err := insertStar(ctx, tx, profileID, s); err != nil {
				return err
			}
		}
		for _, l := range rec.LettersMastered {
			if err := insertMastered(ctx, tx, profileID, l, time.Now().UTC()); err != nil {
				return err
			}
		}
		for _, b := range rec.Badges {
			if err := insertBadge(ctx, tx, profileID, b); err != nil {
				return err
			}
		}
		return updateCounters(ctx, tx, profileID, CountersOf(rec))
	})
	if err != nil {
		return fmt.Errorf("failed to import progress: %w", err)
	}
	return nil
}

// Reset deletes all stars, badges and mastered letters and zeroes the counters
func (r *ProgressRepository) Reset(ctx context.Context, profileID string) error {
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range []string{"stars", "badges", "mastered_letters"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile_id = ?", profileID); err != nil {
				return err
			}
		}
		return updateCounters(ctx, tx, profileID, Counters{})
	})
	if err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	return nil
}

func insertStar(ctx context.Context, db database.DBTX, profileID string, s models.Star) (int64, error) {
	id, err := db.ExecReturningID(ctx,
		"INSERT INTO stars (profile_id, letter, confidence, earned_at) VALUES (?, ?, ?, ?)",
		profileID, s.Letter, s.Confidence, s.EarnedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert star: %w", err)
	}
	return id, nil
}

func insertMastered(ctx context.Context, db database.DBTX, profileID, letter string, at time.Time) error {
	query := db.GetDialect().InsertIgnoreQuery("mastered_letters", "profile_id", "letter", "mastered_at")
	if _, err := db.ExecContext(ctx, query, profileID, letter, at); err != nil {
		return fmt.Errorf("failed to insert mastered letter: %w", err)
	}
	return nil
}

func insertBadge(ctx context.Context, db database.DBTX, profileID string, b models.Badge) error {
	query := db.GetDialect().InsertIgnoreQuery("badges", "profile_id", "badge_type", "earned_at")
	if _, err := db.ExecContext(ctx, query, profileID, string(b.Type), b.EarnedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert badge: %w", err)
	}
	return nil
}

func updateCounters(ctx context.Context, db database.DBTX, profileID string, c Counters) error {
	result, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET current_streak = ?, best_streak = ?, total_attempts = ?, perfect_pronunciations = ?, updated_at = ?
		WHERE id = ?`,
		c.CurrentStreak, c.BestStreak, c.TotalAttempts, c.PerfectPronunciations, time.Now().UTC(), profileID)
	if err != nil {
		return fmt.Errorf("failed to update counters: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func loadProgress(ctx context.Context, db database.DBTX, profileID string) (models.ProgressRecord, error) {
	rec := models.ProgressRecord{
		Stars:           []models.Star{},
		Badges:          []models.Badge{},
		LettersMastered: []string{},
	}

	err := db.QueryRowContext(ctx, `
		SELECT current_streak, best_streak, total_attempts, perfect_pronunciations
		FROM profiles WHERE id = ?`, profileID).
		Scan(&rec.CurrentStreak, &rec.BestStreak, &rec.TotalAttempts, &rec.PerfectPronunciations)
	if err != nil {
		if isNoRows(err) {
			return rec, ErrProfileNotFound
		}
		return rec, fmt.Errorf("failed to load counters: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, letter, confidence, earned_at FROM stars WHERE profile_id = ? ORDER BY id ASC", profileID)
	if err != nil {
		return rec, fmt.Errorf("failed to query stars: %w", err)
	}
	for rows.Next() {
		var s models.Star
		if err := rows.Scan(&s.ID, &s.Letter, &s.Confidence, &s.EarnedAt); err != nil {
			rows.Close()
			return rec, fmt.Errorf("failed to scan star: %w", err)
		}
		rec.Stars = append(rec.Stars, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rec, err
	}

	rows, err = db.QueryContext(ctx,
		"SELECT letter FROM mastered_letters WHERE profile_id = ? ORDER BY id ASC", profileID)
	if err != nil {
		return rec, fmt.Errorf("failed to query mastered letters: %w", err)
	}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			rows.Close()
			return rec, fmt.Errorf("failed to scan mastered letter: %w", err)
		}
		rec.LettersMastered = append(rec.LettersMastered, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rec, err
	}

	rows, err = db.QueryContext(ctx,
		"SELECT badge_type, earned_at FROM badges WHERE profile_id = ? ORDER BY id ASC", profileID)
	if err != nil {
		return rec, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var badgeType string
		var earnedAt time.Time
		if err := rows.Scan(&badgeType, &earnedAt); err != nil {
			return rec, fmt.Errorf("failed to scan badge: %w", err)
		}
		rec.Badges = append(rec.Badges, models.Badge{Type: models.BadgeType(badgeType), EarnedAt: earnedAt})
	}
	return rec, rows.Err()
}
