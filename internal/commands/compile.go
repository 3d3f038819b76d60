package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/compile"
	"github.com/planlytics/planforge/internal/tabular"
)

func newCompileCmd(opts *options) *cobra.Command {
	var (
		in   string
		out  string
		org  int64
		year int
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a raw analysis into deployment tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.app.Logger()

			raw, err := opts.app.LoadAnalysis(in)
			if err != nil {
				return err
			}

			result := opts.app.Analyze(raw, compile.Options{OrgID: org, PlanYear: year})
			for _, w := range result.Warnings {
				logger.Warn(w)
			}
			logger.Info("analysis compiled",
				"objects", result.Graph.TotalObjects(),
				"lint_score", result.Lint.Score)

			return opts.writeJSON(out, tabular.FromGraph(result.Graph, time.Now().UTC()))
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "path to the raw analysis JSON file")
	cmd.Flags().StringVar(&out, "out", "", "output path for the compiled tables (default: stdout)")
	cmd.Flags().Int64Var(&org, "org", 0, "organization id to stamp onto every object")
	cmd.Flags().IntVar(&year, "year", 0, "plan effectivity year (default: current year)")
	cmd.MarkFlagRequired("in")
	return cmd
}
