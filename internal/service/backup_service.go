package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"alphabettutor/internal/database"
	"alphabettutor/internal/models"
	"alphabettutor/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure.
// Conversation text is never part of a backup.
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Profiles     []ProfileBackup `json:"profiles"`
}

// ProfileBackup represents a learner profile and its progress
type ProfileBackup struct {
	ID            string                `json:"id"`
	Nickname      string                `json:"nickname"`
	ChildName     string                `json:"child_name"`
	AgeRange      string                `json:"age_range"`
	ParentPINHash string                `json:"parent_pin_hash"`
	CreatedAt     time.Time             `json:"created_at"`
	Progress      models.ProgressRecord `json:"progress"`
}

// ImportStats counts what an import did
type ImportStats struct {
	Imported int
	Skipped  int
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db       *database.DB
	profiles *repository.ProfileRepository
	progress *repository.ProgressRepository
	logger   *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		db:       db,
		profiles: repository.NewProfileRepository(db),
		progress: repository.NewProgressRepository(db),
		logger:   logger,
	}
}

// Export writes a complete backup as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Profiles:     []ProfileBackup{},
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	for _, p := range profiles {
		rec, err := s.progress.Load(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export progress of %s: %w", p.ID, err)
		}
		backup.Profiles = append(backup.Profiles, ProfileBackup{
			ID:            p.ID,
			Nickname:      p.Nickname,
			ChildName:     p.ChildName,
			AgeRange:      string(p.AgeRange),
			ParentPINHash: p.ParentPINHash,
			CreatedAt:     p.CreatedAt,
			Progress:      rec,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported", zap.Int("profiles", len(backup.Profiles)))
	return backup, nil
}

// ExportFile creates a complete backup of the database to a file
func (s *BackupService) ExportFile(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := s.Export(ctx, file); err != nil {
		return err
	}
	return file.Close()
}

// Import restores profiles from a backup. Profiles whose ID or nickname
// already exists are skipped.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return stats, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return stats, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.logger.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.Int("profiles", len(backup.Profiles)))

	for _, pb := range backup.Profiles {
		imported, err := s.importProfile(ctx, pb)
		if err != nil {
			return stats, fmt.Errorf("failed to import profile %s: %w", pb.ID, err)
		}
		if imported {
			stats.Imported++
		} else {
			stats.Skipped++
		}
	}

	s.logger.Info("database import completed", zap.Int("imported", stats.Imported), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// ImportFile restores a database from a backup file
func (s *BackupService) ImportFile(ctx context.Context, inputPath string) (ImportStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.Import(ctx, file)
}

func (s *BackupService) importProfile(ctx context.Context, pb ProfileBackup) (bool, error) {
	if pb.ID == "" || pb.Nickname == "" {
		return false, errors.New("profile id and nickname are required")
	}
	if _, err := s.profiles.GetByID(ctx, pb.ID); err == nil {
		s.logger.Info("profile exists, skipping", zap.String("profile_id", pb.ID))
		return false, nil
	} else if !errors.Is(err, repository.ErrProfileNotFound) {
		return false, err
	}
	taken, err := s.profiles.NicknameExists(ctx, pb.Nickname)
	if err != nil {
		return false, err
	}
	if taken {
		s.logger.Warn("nickname taken, skipping", zap.String("profile_id", pb.ID), zap.String("nickname", pb.Nickname))
		return false, nil
	}

	ageRange, ok := models.ParseAgeRange(pb.AgeRange)
	if !ok {
		ageRange = models.AgeRangeYounger
	}
	profile := &models.Profile{
		ID:            pb.ID,
		Nickname:      pb.Nickname,
		ChildName:     pb.ChildName,
		AgeRange:      ageRange,
		ParentPINHash: pb.ParentPINHash,
		CreatedAt:     pb.CreatedAt,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return false, err
	}
	if err := s.progress.Import(ctx, pb.ID, pb.Progress); err != nil {
		return false, err
	}
	return true, nil
}
