package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/planlytics/planforge/internal/cli"
	"github.com/planlytics/planforge/internal/commands"
)

// main is the entrypoint for the planforge application.
func main() {
	// Use a minimal logger until the configured one takes over.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the command dispatch for easier testing and error
// handling.
func run(outW, errW io.Writer, args []string) error {
	root := commands.NewRoot(outW, errW)
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetArgs(args)
	return root.Execute()
}
