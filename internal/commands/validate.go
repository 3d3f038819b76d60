package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/cli"
	"github.com/planlytics/planforge/internal/compile"
)

func newValidateCmd(opts *options) *cobra.Command {
	var (
		in   string
		org  int64
		year int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an analysis for dangling cross-references",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := opts.app.LoadAnalysis(in)
			if err != nil {
				return err
			}

			result := opts.app.Analyze(raw, compile.Options{OrgID: org, PlanYear: year})
			if len(result.Warnings) == 0 {
				fmt.Fprintln(opts.outW, "analysis is consistent: no dangling references")
				return nil
			}
			for _, w := range result.Warnings {
				fmt.Fprintln(opts.outW, w)
			}
			return &cli.ExitError{
				Code:    1,
				Message: fmt.Sprintf("%d consistency warning(s)", len(result.Warnings)),
			}
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "path to the raw analysis JSON file")
	cmd.Flags().Int64Var(&org, "org", 0, "organization id to stamp onto every object")
	cmd.Flags().IntVar(&year, "year", 0, "plan effectivity year (default: current year)")
	cmd.MarkFlagRequired("in")
	return cmd
}
