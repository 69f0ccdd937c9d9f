// Package cli provides the console front end for the alphabet tutor.
package cli

import (
	"github.com/spf13/cobra"

	"alphabettutor/internal/config"
)

// Options are the global flags
type Options struct {
	AgeRange  string
	MaxTurns  int
	UseGemini bool
	LogLevel  string
}

// App represents the tutor CLI application
type App struct {
	Config  *config.Config
	Options Options
}

// NewApp creates a new tutor CLI application
func NewApp() *App {
	cfg := config.Load()
	return &App{
		Config: cfg,
		Options: Options{
			AgeRange: cfg.DefaultAgeRange,
			MaxTurns: cfg.MaxTurns,
			LogLevel: "error",
		},
	}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tutor",
		Short: "Practise the alphabet with Bubbly from the terminal",
		Long: `tutor runs an in-process alphabet tutoring session. Nothing is written
to disk: the conversation and progress end with the process.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.Options.AgeRange, "age-range", app.Options.AgeRange, "Age range of the child (3-5 or 6-8)")
	rootCmd.PersistentFlags().IntVar(&app.Options.MaxTurns, "max-turns", app.Options.MaxTurns, "Number of turns kept in conversation memory")
	rootCmd.PersistentFlags().BoolVar(&app.Options.UseGemini, "gemini", false, "Use Gemini replies (needs GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&app.Options.LogLevel, "log-level", app.Options.LogLevel, "Log level")

	app.addChatCommand(rootCmd)
	app.addCurriculumCommand(rootCmd)

	return rootCmd
}
