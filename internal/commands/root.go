// Package commands assembles the planforge command tree.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/app"
)

// options carries the state shared between the root command and its
// subcommands. The App is built once flags are parsed.
type options struct {
	logLevel  string
	logFormat string

	outW io.Writer
	errW io.Writer

	app *app.App
}

// NewRoot builds the planforge command tree. outW receives command output,
// errW receives logs.
func NewRoot(outW, errW io.Writer) *cobra.Command {
	opts := &options{outW: outW, errW: errW}

	root := &cobra.Command{
		Use:           "planforge",
		Short:         "Compile, lint and deploy incentive compensation plans",
		Long:          "planforge turns raw compensation plan analyses into validated object graphs and deploys them to the remote incentive compensation system.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.app = app.New(opts.logLevel, opts.logFormat, opts.errW)
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "logging level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log output format: text or json")

	root.AddCommand(
		newCompileCmd(opts),
		newValidateCmd(opts),
		newLintCmd(opts),
		newDeployCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// writeJSON renders v as indented JSON to the given file, or to the command
// output writer when path is empty.
func (o *options) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = o.outW.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}
	return nil
}
