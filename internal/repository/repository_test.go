package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphabettutor/internal/database"
	"alphabettutor/internal/models"
	"alphabettutor/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), migrations.FS, nil))
	return db
}

func createProfile(t *testing.T, repo *ProfileRepository, id, nickname string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: id, Nickname: nickname}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(openTestDB(t))

	created := createProfile(t, repo, "p-1", "HappyOwl42")
	assert.Equal(t, models.AgeRangeYounger, created.AgeRange)

	got, err := repo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "HappyOwl42", got.Nickname)
	assert.False(t, got.HasParentPIN())

	require.NoError(t, repo.UpdateChild(ctx, "p-1", "Maya", models.AgeRangeOlder))
	require.NoError(t, repo.SetParentPIN(ctx, "p-1", "$2a$hash"))

	got, err = repo.GetByNickname(ctx, "HappyOwl42")
	require.NoError(t, err)
	assert.Equal(t, "Maya", got.ChildName)
	assert.Equal(t, models.AgeRangeOlder, got.AgeRange)
	assert.True(t, got.HasParentPIN())

	exists, err := repo.NicknameExists(ctx, "HappyOwl42")
	require.NoError(t, err)
	assert.True(t, exists)

	createProfile(t, repo, "p-2", "BraveFox7")
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "p-2"))
	_, err = repo.GetByID(ctx, "p-2")
	assert.True(t, errors.Is(err, ErrProfileNotFound))
	assert.True(t, errors.Is(repo.UpdateChild(ctx, "nope", "x", models.AgeRangeYounger), ErrProfileNotFound))
}

func TestProgressRepositoryRecordAndLoad(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	profiles := NewProfileRepository(db)
	repo := NewProgressRepository(db)
	createProfile(t, profiles, "p-1", "CleverCat1")

	earned := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	starID, err := repo.RecordAttempt(ctx, "p-1", Attempt{
		Star:           &models.Star{Letter: "A", Confidence: 0.96, EarnedAt: earned},
		Badges:         []models.Badge{{Type: models.BadgeFirstLetter, EarnedAt: earned}},
		MasteredLetter: "A",
		Counters:       Counters{CurrentStreak: 1, BestStreak: 1, TotalAttempts: 1, PerfectPronunciations: 1},
	})
	require.NoError(t, err)
	assert.NotZero(t, starID)

	// A repeated badge or mastered letter is ignored
	_, err = repo.RecordAttempt(ctx, "p-1", Attempt{
		Badges:         []models.Badge{{Type: models.BadgeFirstLetter, EarnedAt: earned}},
		MasteredLetter: "A",
		Counters:       Counters{CurrentStreak: 0, BestStreak: 1, TotalAttempts: 2, PerfectPronunciations: 1},
	})
	require.NoError(t, err)

	rec, err := repo.Load(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, rec.Stars, 1)
	assert.Equal(t, starID, rec.Stars[0].ID)
	assert.Equal(t, "A", rec.Stars[0].Letter)
	assert.True(t, rec.Stars[0].EarnedAt.Equal(earned))
	assert.Equal(t, []string{"A"}, rec.LettersMastered)
	require.Len(t, rec.Badges, 1)
	assert.Equal(t, models.BadgeFirstLetter, rec.Badges[0].Type)
	assert.Equal(t, 0, rec.CurrentStreak)
	assert.Equal(t, 1, rec.BestStreak)
	assert.Equal(t, 2, rec.TotalAttempts)

	require.NoError(t, repo.Reset(ctx, "p-1"))
	rec, err = repo.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, rec.Stars)
	assert.Empty(t, rec.Badges)
	assert.Empty(t, rec.LettersMastered)
	assert.Equal(t, 0, rec.BestStreak)
}

func TestProgressRepositoryImport(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	createProfile(t, NewProfileRepository(db), "p-1", "QuietBee3")
	repo := NewProgressRepository(db)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := models.ProgressRecord{
		Stars:           []models.Star{{Letter: "E", Confidence: 0.9, EarnedAt: at}, {Letter: "I", Confidence: 0.75, EarnedAt: at}},
		Badges:          []models.Badge{{Type: models.BadgeFirstLetter, EarnedAt: at}},
		LettersMastered: []string{"E"},
		CurrentStreak:   1,
		BestStreak:      4,
		TotalAttempts:   9,
	}
	require.NoError(t, repo.Import(ctx, "p-1", in))

	out, err := repo.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, out.Stars, 2)
	assert.Equal(t, []string{"E"}, out.LettersMastered)
	assert.Equal(t, 4, out.BestStreak)
	assert.Equal(t, 9, out.TotalAttempts)
}

func TestProgressRepositoryUnknownProfile(t *testing.T) {
	repo := NewProgressRepository(openTestDB(t))

	_, err := repo.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	err = repo.Reset(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestRecordAttemptPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewProgressRepository(database.New(conn, database.NewPostgresDialect()))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO stars \(profile_id, letter, confidence, earned_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id`).
		WithArgs("p-1", "B", 0.85, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO mastered_letters \(profile_id, letter, mastered_at\) VALUES \(\$1, \$2, \$3\) ON CONFLICT DO NOTHING`).
		WithArgs("p-1", "B", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs(1, 1, 1, 0, sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.RecordAttempt(context.Background(), "p-1", Attempt{
		Star:           &models.Star{Letter: "B", Confidence: 0.85, EarnedAt: time.Now()},
		MasteredLetter: "B",
		Counters:       Counters{CurrentStreak: 1, BestStreak: 1, TotalAttempts: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttemptRollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewProgressRepository(database.New(conn, database.NewSQLiteDialect()))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT OR IGNORE INTO badges`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = repo.RecordAttempt(context.Background(), "p-1", Attempt{
		Badges: []models.Badge{{Type: models.BadgeFiveStreak}},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
