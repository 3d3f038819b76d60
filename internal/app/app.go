// Package app wires the analysis pipeline together for the CLI and the
// service: logger construction, analysis loading, and the
// compile/validate/lint pass every surface runs.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/planlytics/planforge/internal/compile"
	"github.com/planlytics/planforge/internal/ctxlog"
	"github.com/planlytics/planforge/internal/lint"
	"github.com/planlytics/planforge/internal/model"
	"github.com/planlytics/planforge/internal/validate"
)

// App holds the per-invocation dependencies shared by all commands.
type App struct {
	logger *slog.Logger
}

// New builds an App with a logger writing to errW.
func New(logLevel, logFormat string, errW io.Writer) *App {
	return &App{logger: NewLogger(logLevel, logFormat, errW)}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Context returns a background context carrying the application logger.
func (a *App) Context() context.Context {
	return ctxlog.WithLogger(context.Background(), a.logger)
}

// LoadAnalysis reads and parses a raw analysis file.
func (a *App) LoadAnalysis(path string) (*model.RawAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read analysis file: %w", err)
	}
	return model.ParseRawAnalysis(data)
}

// Result is the outcome of one full local pipeline pass.
type Result struct {
	Graph    *model.Graph
	Warnings []string
	Lint     *lint.Report
}

// Analyze compiles the raw analysis and runs cross-reference validation and
// the configuration linter over the result.
func (a *App) Analyze(raw *model.RawAnalysis, opts compile.Options) *Result {
	graph, compileWarnings := compile.Compile(raw, opts)

	var warnings []string
	for _, w := range compileWarnings {
		warnings = append(warnings, w.String())
	}
	warnings = append(warnings, validate.Validate(graph)...)

	return &Result{
		Graph:    graph,
		Warnings: warnings,
		Lint:     lint.Analyze(graph),
	}
}
