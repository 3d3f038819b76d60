package commands

import (
	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/cli"
	"github.com/planlytics/planforge/internal/compile"
	"github.com/planlytics/planforge/internal/config"
	"github.com/planlytics/planforge/internal/deploy"
	"github.com/planlytics/planforge/internal/gateway"
)

func newDeployCmd(opts *options) *cobra.Command {
	var (
		in      string
		cfgPath string
		dryRun  bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Push a compiled analysis to the remote system",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.app.Logger()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForDeploy(); err != nil {
				return err
			}

			raw, err := opts.app.LoadAnalysis(in)
			if err != nil {
				return err
			}
			result := opts.app.Analyze(raw, compile.Options{
				OrgID:    cfg.Organization.OrgID,
				PlanYear: cfg.Plan.Year,
			})
			for _, w := range result.Warnings {
				logger.Warn(w)
			}

			read, write, err := cfg.Timeouts()
			if err != nil {
				return err
			}
			gw := gateway.NewClient(cfg.API.BaseURL, cfg.API.Username, cfg.API.Password,
				gateway.WithTimeouts(read, write))

			report, err := deploy.New(gw).Deploy(opts.app.Context(), result.Graph, deploy.Options{
				DryRun: dryRun,
				Force:  force || cfg.Deploy.Force,
			})
			if report != nil {
				if werr := opts.writeJSON("", report); werr != nil {
					return werr
				}
			}
			if err != nil {
				return &cli.ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "path to the raw analysis JSON file")
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the deployment configuration (.hcl or .yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and preview without writing to the remote")
	cmd.Flags().BoolVar(&force, "force", false, "continue past per-object failures")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("config")
	return cmd
}
