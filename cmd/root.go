// Package cmd defines and implements the CLI commands for the riverscout
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App carries the services every subcommand needs: validated configuration
// and the structured logger.
type App struct {
	Cfg config.Config
	Log *logging.CrawlLog
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Log.Logger().Sync()
}

// newApp is the application factory. It's a variable so tests can replace it
// with a mock factory.
var newApp = func(_ context.Context) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var logger *zap.Logger
	if cfg.Logging.Path != "" {
		logger, err = logging.NewFile(cfg.Logging.Path, cfg.Logging.Development)
	} else {
		logger, err = logging.New(cfg.Logging.Development)
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &App{Cfg: cfg, Log: logging.NewCrawlLog(logger)}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "riverscout",
		Short: "A polite scraper for New Zealand fly-fishing data.",
		Long: `riverscout discovers fishing regions and rivers from nzfishing.com,
extracts fly recommendations and regulations from river pages, and stores
everything in a local SQLite database. It fetches strictly sequentially,
honors robots.txt, and never writes a structured field it cannot back with
verbatim source text.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults plus RIVERSCOUT_ env vars otherwise)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newPDFCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command and returns its error for exit-code mapping
// in main.
func Execute() error {
	return newRootCmd().Execute()
}
