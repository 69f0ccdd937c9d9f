package database

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RunMigrationsFromDir executes the migrations under dir/<dialect subdir>
func (db *DB) RunMigrationsFromDir(ctx context.Context, dir string, logger *zap.Logger) error {
	return db.RunMigrations(ctx, os.DirFS(dir), logger)
}

// RunMigrations executes every .sql file in the dialect's subdirectory of
// fsys that has not run yet, in filename order
func (db *DB) RunMigrations(ctx context.Context, fsys fs.FS, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := db.DB.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	subdir := db.Dialect.MigrationsSubdir()
	files, err := fs.Glob(fsys, path.Join(subdir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		filename := path.Base(file)

		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		err = db.WithTx(ctx, func(tx *Tx) error {
			for _, stmt := range splitStatements(string(content)) {
				if _, err := tx.Tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		logger.Info("migration completed", zap.String("file", filename), zap.String("dialect", subdir))
	}

	return nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// splitStatements breaks a migration into single statements. MySQL rejects
// multi-statement Exec calls unless the DSN opts in.
func splitStatements(content string) []string {
	var stmts []string
	for _, stmt := range strings.Split(content, ";") {
		if hasSQL(stmt) {
			stmts = append(stmts, strings.TrimSpace(stmt))
		}
	}
	return stmts
}

// hasSQL reports whether a chunk contains anything besides comments and whitespace
func hasSQL(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}
