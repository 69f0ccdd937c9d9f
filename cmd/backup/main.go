package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"alphabettutor/internal/config"
	"alphabettutor/internal/database"
	"alphabettutor/internal/logging"
	"alphabettutor/internal/service"
	"alphabettutor/migrations"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing profiles before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if cfg.MigrationsPath != "" {
		err = db.RunMigrationsFromDir(ctx, cfg.MigrationsPath, logger)
	} else {
		err = db.RunMigrations(ctx, migrations.FS, logger)
	}
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	backupService := service.NewBackupService(db, logger)

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		if err := handleExport(ctx, backupService, *exportOutput, logger); err != nil {
			logger.Fatal("export failed", zap.Error(err))
		}

	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := handleImport(ctx, backupService, db, *importInput, *importClear, logger); err != nil {
			logger.Fatal("import failed", zap.Error(err))
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, logger *zap.Logger) error {
	// Generate default filename if not provided
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Info("exporting database", zap.String("path", outputPath))
	if err := backupService.ExportFile(ctx, outputPath); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info("export complete", zap.Int64("bytes", info.Size()))
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, db *database.DB, inputPath string, clearData bool, logger *zap.Logger) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputPath)
	}

	if clearData {
		fmt.Print("WARNING: This will delete every learner profile and its progress. Type 'yes' to confirm: ")
		confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			logger.Info("import cancelled")
			return nil
		}

		logger.Info("clearing existing profiles")
		if err := clearProfiles(ctx, db, logger); err != nil {
			return err
		}
	}

	logger.Info("importing database", zap.String("path", inputPath))
	stats, err := backupService.ImportFile(ctx, inputPath)
	if err != nil {
		return err
	}
	logger.Info("import complete", zap.Int("imported", stats.Imported), zap.Int("skipped", stats.Skipped))
	return nil
}

func clearProfiles(ctx context.Context, db *database.DB, logger *zap.Logger) error {
	return db.WithTx(ctx, func(tx *database.Tx) error {
		// Delete in reverse order of dependencies
		for _, table := range []string{"stars", "badges", "mastered_letters", "profiles"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			logger.Info("cleared table", zap.String("table", table))
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("Alphabet Tutor Profile Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export learner profiles and progress to a JSON file")
	fmt.Println("  backup import [options]    Import learner profiles and progress from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing profiles before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Conversation text is never stored, so backups contain profiles and progress only.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./alphabettutor.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
