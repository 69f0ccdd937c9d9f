package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/logging"
	"alphabettutor/internal/service"
	"alphabettutor/internal/tutor"
)

const chatHelp = `Type what the child says. Add a pronunciation score with "text | 0.9".
Commands: /state /memory /next /progress /reset /help /quit`

var errQuit = errors.New("quit")

func (app *App) addChatCommand(rootCmd *cobra.Command) {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tutoring session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(chatCmd)
}

func (app *App) newTutorService(ctx context.Context) (*service.TutorService, error) {
	logger, err := logging.New(app.Options.LogLevel)
	if err != nil {
		return nil, err
	}

	lessons, err := curriculum.Load()
	if err != nil {
		return nil, err
	}
	var responder tutor.Responder = tutor.NewRuleResponder(lessons)
	if app.Options.UseGemini {
		if app.Config == nil || app.Config.GeminiAPIKey == "" {
			return nil, errors.New("--gemini needs GEMINI_API_KEY")
		}
		gemini, err := tutor.NewGeminiResponder(ctx, app.Config.GeminiAPIKey, app.Config.GeminiModel, lessons)
		if err != nil {
			return nil, err
		}
		responder = tutor.NewFallbackResponder(gemini, responder, logger)
	}

	return service.NewTutorService(service.Options{
		Responder: responder,
		Safety:    tutor.NewSafetyFilter(nil),
		Logger:    logger,
		MaxTurns:  app.Options.MaxTurns,
	}), nil
}

func (app *App) runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := app.newTutorService(ctx)
	if err != nil {
		return err
	}

	started, err := svc.StartSession(ctx, service.StartOptions{AgeRange: app.Options.AgeRange})
	if err != nil {
		return err
	}
	id := started.SessionID
	defer func() { _ = svc.EndSession(context.Background(), id) }()

	fmt.Fprintln(out, "Bubbly: Hi! I'm Bubbly. What's your name?")
	fmt.Fprintln(out, chatHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			err = runChatCommand(ctx, svc, id, line, out)
		} else {
			err = sendUtterance(ctx, svc, id, line, out)
		}
		if errors.Is(err, errQuit) {
			fmt.Fprintln(out, "Bubbly: Bye bye! See you next time!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// parseUtterance splits "text | 0.9" into the text and an optional score
func parseUtterance(line string) (string, *float64, error) {
	idx := strings.LastIndex(line, "|")
	if idx < 0 {
		return line, nil, nil
	}
	text := strings.TrimSpace(line[:idx])
	score, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid score %q", strings.TrimSpace(line[idx+1:]))
	}
	return text, &score, nil
}

func sendUtterance(ctx context.Context, svc *service.TutorService, id, line string, out io.Writer) error {
	text, score, err := parseUtterance(line)
	if err != nil {
		return err
	}
	turn, err := svc.HandleMessage(ctx, id, text, score)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Bubbly: %s\n", turn.Reply)
	if turn.Star != nil {
		fmt.Fprintf(out, "⭐ You earned a star for %s!\n", turn.Star.Letter)
	}
	for _, b := range turn.Badges {
		fmt.Fprintf(out, "%s New badge: %s (%s)\n", b.Icon, b.Name, b.Description)
	}
	return nil
}

func runChatCommand(ctx context.Context, svc *service.TutorService, id, line string, out io.Writer) error {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/state":
		state, err := svc.State(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, state)
	case "/memory":
		memory, err := svc.Memory(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, memory)
	case "/next":
		letter, err := svc.NextLetter(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next letter: %s\n", letter)
	case "/progress":
		summary, err := svc.Progress(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Stars: %d  Badges: %d  Streak: %d (best %d)  Mastered: %d %v\n",
			summary.StarsEarned, summary.BadgesEarned, summary.CurrentStreak, summary.BestStreak,
			summary.LettersMastered, summary.MasteredList)
		fmt.Fprintln(out, summary.Message)
	case "/reset":
		if _, err := svc.ResetSession(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "Session reset. Progress is kept.")
	default:
		return fmt.Errorf("unknown command %s (try /help)", line)
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
