package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	app "github.com/alpex-ai/housing-intelligence/internal/app"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/runtime"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/ingest"
	"github.com/alpex-ai/housing-intelligence/internal/config"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

const jobTimeout = 30 * time.Minute

type cli struct {
	configPath string
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "housingctl",
		Short: "Run housing data syncs, seeding and imports",
		Long: `housingctl runs the same jobs the API exposes, against the backend
selected by DATABASE_URL or SUPABASE_URL.

Available commands:
  sync fred|history|all - Pull FRED series into the housing tables
  seed                  - Write synthetic history for demos
  import-zhvi           - Load a Zillow metro ZHVI CSV
  analyze               - Evaluate a relocation scenario for a home`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to YAML config (defaults to CONFIG_FILE)")

	root.AddCommand(c.syncCmd(), c.seedCmd(), c.importCmd(), c.analyzeCmd())
	return root
}

func (c *cli) syncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull FRED series into the housing tables",
	}

	fredCmd := &cobra.Command{
		Use:   "fred",
		Short: "Store today's snapshot of the national indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), func(ctx context.Context, a *app.Application) (ingest.Report, error) {
				return a.Ingest.SyncFRED(ctx)
			})
		},
	}

	var years int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Backfill monthly metrics, regional rows and the economic index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), func(ctx context.Context, a *app.Application) (ingest.Report, error) {
				return a.Ingest.SyncHistory(ctx, years)
			})
		},
	}
	historyCmd.Flags().IntVar(&years, "years", 2, "Years of history to fetch")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Refresh builder, household, regional, crash and index tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), func(ctx context.Context, a *app.Application) (ingest.Report, error) {
				return a.Ingest.SyncAll(ctx)
			})
		},
	}

	syncCmd.AddCommand(fredCmd, historyCmd, allCmd)
	return syncCmd
}

func (c *cli) runSync(ctx context.Context, job func(context.Context, *app.Application) (ingest.Report, error)) error {
	return c.withApp(ctx, func(ctx context.Context, a *app.Application) error {
		report, err := job(ctx, a)
		if err != nil {
			return err
		}
		return c.print(report)
	})
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic builder, household, crash, regional and index history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				report, err := a.Seed.SeedAll(ctx)
				if err != nil {
					return err
				}
				return c.print(report)
			})
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var file, url string
	cmd := &cobra.Command{
		Use:   "import-zhvi",
		Short: "Load a Zillow metro ZHVI CSV from a file or URL",
		Long: `Load a Zillow metro ZHVI CSV. With neither --file nor --url the configured
ZILLOW_ZHVI_URL is downloaded. Rows that already exist are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" && url != "" {
				return fmt.Errorf("--file and --url are mutually exclusive")
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				if file != "" {
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					report, err := a.Importer.Import(ctx, f)
					if err != nil {
						return err
					}
					return c.print(report)
				}
				if url == "" {
					cfg, err := c.loadConfig()
					if err != nil {
						return err
					}
					url = cfg.Zillow.URL
				}
				report, err := a.Importer.ImportURL(ctx, url)
				if err != nil {
					return err
				}
				return c.print(report)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to a local ZHVI CSV")
	cmd.Flags().StringVar(&url, "url", "", "URL of a ZHVI CSV")
	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var userID, homeID, target, scenarioType string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate moving from a saved home to a target city",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				analysis, err := a.Advisor.Analyze(ctx, userID, homeID, target, advisor.ScenarioType(scenarioType))
				if err != nil {
					return err
				}
				return c.print(analysis)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner of the home")
	cmd.Flags().StringVar(&homeID, "home", "", "Home id")
	cmd.Flags().StringVar(&target, "target", "", "Target city, matched against metro names")
	cmd.Flags().StringVar(&scenarioType, "type", string(advisor.SellAndBuy), "sell_and_buy, rent_current_buy_new or keep_and_buy")
	for _, name := range []string{"user", "home", "target"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.LoadFromPath(c.configPath)
	}
	return config.Load()
}

// withApp builds the application without the HTTP server or scheduler and
// runs fn with a bounded context.
func (c *cli) withApp(ctx context.Context, fn func(context.Context, *app.Application) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg.Scheduler.Enabled = false
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Backend() == config.BackendMemory {
		fmt.Fprintln(os.Stderr, "warning: no DATABASE_URL or SUPABASE_URL set; results are not persisted")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	rt, err := runtime.NewApplication(ctx, cfg, logger.New(cfg.Logging))
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	return fn(ctx, rt.App())
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
