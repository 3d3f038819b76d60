package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/compile"
)

func newLintCmd(opts *options) *cobra.Command {
	var (
		in       string
		org      int64
		year     int
		asJSON   bool
		minScore int
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Score a configuration and report efficiency findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := opts.app.LoadAnalysis(in)
			if err != nil {
				return err
			}

			result := opts.app.Analyze(raw, compile.Options{OrgID: org, PlanYear: year})
			report := result.Lint

			if asJSON {
				if err := opts.writeJSON("", report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(opts.outW, "score: %d/100 (%d finding(s) across %d object(s))\n",
					report.Score, report.Summary.TotalFindings, report.Summary.TotalObjects)
				for _, f := range report.Findings {
					fmt.Fprintf(opts.outW, "[%s] %s: %s\n", f.Severity, f.Category, f.Title)
					fmt.Fprintf(opts.outW, "  %s\n", f.Detail)
					fmt.Fprintf(opts.outW, "  recommendation: %s\n", f.Recommendation)
				}
			}

			if report.Score < minScore {
				return fmt.Errorf("lint score %d is below the required minimum %d", report.Score, minScore)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "path to the raw analysis JSON file")
	cmd.Flags().Int64Var(&org, "org", 0, "organization id to stamp onto every object")
	cmd.Flags().IntVar(&year, "year", 0, "plan effectivity year (default: current year)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full report as JSON")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "fail when the score is below this threshold")
	cmd.MarkFlagRequired("in")
	return cmd
}
