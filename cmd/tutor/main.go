package main

import (
	"os"

	"alphabettutor/cmd/tutor/internal/cli"
)

func main() {
	if err := cli.NewApp().CreateRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
