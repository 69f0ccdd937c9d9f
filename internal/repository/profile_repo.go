package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alphabettutor/internal/database"
	"alphabettutor/internal/models"
)

// ErrProfileNotFound is returned when no profile matches
var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = "id, nickname, child_name, age_range, parent_pin_hash, created_at, updated_at"

// ProfileRepository handles database operations for learner profiles
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a profile. ID and Nickname must already be set.
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.AgeRange == "" {
		p.AgeRange = models.AgeRangeYounger
	}

	query := "INSERT INTO profiles (" + profileColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Nickname, p.ChildName, string(p.AgeRange), p.ParentPINHash, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
}

// GetByNickname retrieves a profile by its nickname
func (r *ProfileRepository) GetByNickname(ctx context.Context, nickname string) (*models.Profile, error) {
	return r.getOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE nickname = ?", nickname)
}

func (r *ProfileRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, arg))
	if isNoRows(err) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// NicknameExists reports whether a nickname is taken
func (r *ProfileRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE nickname = ?", nickname).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check nickname: %w", err)
	}
	return count > 0, nil
}

// List returns every profile, oldest first
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateChild stores the child's name and age range
func (r *ProfileRepository) UpdateChild(ctx context.Context, id, childName string, ageRange models.AgeRange) error {
	return r.update(ctx, "UPDATE profiles SET child_name = ?, age_range = ?, updated_at = ? WHERE id = ?",
		childName, string(ageRange), time.Now().UTC(), id)
}

// SetParentPIN stores a bcrypt hash of the parent PIN ("" removes it)
func (r *ProfileRepository) SetParentPIN(ctx context.Context, id, pinHash string) error {
	return r.update(ctx, "UPDATE profiles SET parent_pin_hash = ?, updated_at = ? WHERE id = ?",
		pinHash, time.Now().UTC(), id)
}

// Delete removes a profile and, through cascading keys, all its progress
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	return r.update(ctx, "DELETE FROM profiles WHERE id = ?", id)
}

func (r *ProfileRepository) update(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var ageRange string
	err := row.Scan(&p.ID, &p.Nickname, &p.ChildName, &ageRange, &p.ParentPINHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AgeRange = models.AgeRange(ageRange)
	return p, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
