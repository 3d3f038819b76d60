package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/planlytics/planforge/internal/config"
	"github.com/planlytics/planforge/internal/gateway"
	"github.com/planlytics/planforge/internal/review"
	"github.com/planlytics/planforge/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr    string
		cfgPath string
		dbDSN   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis review and deployment service",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is optional; environment variables win.
			if err := godotenv.Load(); err == nil {
				opts.app.Logger().Debug("loaded environment from .env file")
			}
			logger := opts.app.Logger()

			var cfg *config.Config
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg, _ = config.ParseYAML([]byte("{}"))
			}

			var store review.Store
			if dbDSN == "" {
				dbDSN = os.Getenv("PLANFORGE_DB_DSN")
			}
			if dbDSN != "" {
				gormStore, err := review.OpenGorm(dbDSN)
				if err != nil {
					return err
				}
				store = gormStore
				logger.Info("review ledger backed by MySQL")
			} else {
				store = review.NewMemory()
				logger.Info("review ledger is in-memory, records do not survive restarts")
			}

			var gw gateway.Gateway
			if cfg.API.BaseURL != "" {
				read, write, err := cfg.Timeouts()
				if err != nil {
					return err
				}
				gw = gateway.NewClient(cfg.API.BaseURL, cfg.API.Username, cfg.API.Password,
					gateway.WithTimeouts(read, write))
			} else {
				logger.Warn("no api.base_url configured, deployment endpoint disabled")
			}

			srv := server.New(server.Options{
				Store:    store,
				Gateway:  gw,
				OrgID:    cfg.Organization.OrgID,
				PlanYear: cfg.Plan.Year,
				Logger:   logger,
			})

			logger.Info("serving", "addr", addr)
			return srv.Listen(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the deployment configuration (.hcl or .yaml)")
	cmd.Flags().StringVar(&dbDSN, "db", "", "MySQL DSN for the review ledger (default: in-memory)")
	return cmd
}
