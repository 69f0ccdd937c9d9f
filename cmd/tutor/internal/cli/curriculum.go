package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"alphabettutor/internal/curriculum"
)

func (app *App) addCurriculumCommand(rootCmd *cobra.Command) {
	curriculumCmd := &cobra.Command{
		Use:   "curriculum [letter]",
		Short: "Show the lesson for a letter, or list every letter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessons, err := curriculum.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, l := range lessons.Letters() {
					fmt.Fprintf(out, "%s  %-6s %s\n", l.Letter, l.Phoneme, l.FirstExample())
				}
				return nil
			}

			lesson, ok := lessons.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown letter %q", args[0])
			}
			printLesson(out, lesson)
			return nil
		},
	}
	rootCmd.AddCommand(curriculumCmd)
}

func printLesson(out io.Writer, l curriculum.Letter) {
	fmt.Fprintf(out, "Letter:      %s\n", l.Letter)
	fmt.Fprintf(out, "Sound:       %s (%s)\n", l.Phoneme, l.SoundDescription)
	fmt.Fprintf(out, "Examples:    %s\n", strings.Join(l.ExampleWords, ", "))
	if len(l.CommonConfusions) > 0 {
		fmt.Fprintf(out, "Mixed up with: %s\n", strings.Join(l.CommonConfusions, ", "))
	}
	if l.MappedObject != "" {
		fmt.Fprintf(out, "Picture:     %s\n", l.MappedObject)
	}
}
