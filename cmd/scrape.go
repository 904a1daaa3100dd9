package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nzflyfish/riverscout/internal/api"
	"github.com/nzflyfish/riverscout/internal/clock/system"
	"github.com/nzflyfish/riverscout/internal/fetch"
	"github.com/nzflyfish/riverscout/internal/parse"
	"github.com/nzflyfish/riverscout/internal/scrape"
	"github.com/nzflyfish/riverscout/internal/store"
)

func newScrapeCmd() *cobra.Command {
	var (
		all         bool
		details     bool
		refresh     bool
		regionSlug  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the scrape pipeline",
		Long: `Runs region discovery, river discovery, and river detail extraction
against the configured origin. Without flags only the discovery phases run;
--details adds extraction, --all runs everything, --region restricts river
and detail work to one region.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			opts := scrape.Options{
				Regions:      all || (regionSlug == "" && !details),
				Rivers:       all || regionSlug != "" || !details,
				Details:      all || details,
				RegionSlug:   regionSlug,
				ForceRefresh: refresh,
			}
			return runScrape(cmd.Context(), appInstance, opts, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run all phases: regions, rivers, details")
	cmd.Flags().BoolVar(&details, "details", false, "extract river details")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the HTTP cache (fresh pages still get cached)")
	cmd.Flags().StringVar(&regionSlug, "region", "", "restrict to one region by slug")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics and status on this address while scraping")

	return cmd
}

func runScrape(ctx context.Context, appInstance *App, opts scrape.Options, metricsAddr string) error {
	cfg := appInstance.Cfg
	log := appInstance.Log

	clk := system.New()
	fetcher, err := fetch.New(cfg, log, clk, clk)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		srv := api.NewServer(fetcher, st, log.Logger())
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if serr := srv.Serve(serveCtx, metricsAddr); serr != nil {
				log.Logger().Warn("metrics server stopped", zap.Error(serr))
			}
		}()
	}

	runner := scrape.New(cfg, fetcher, parse.New(cfg), st, log, clk)
	log.Logger().Info("starting scrape",
		zap.String("session_id", runner.SessionID()),
		zap.Bool("regions", opts.Regions),
		zap.Bool("rivers", opts.Rivers),
		zap.Bool("details", opts.Details),
	)

	sum, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}

	stats := fetcher.Cache().Stats()
	fmt.Printf("Scrape complete: %d regions, %d rivers, %d flies, %d regulations (%d skipped)\n",
		sum.Regions, sum.Rivers, sum.Flies, sum.Regulations, sum.Skipped)
	fmt.Printf("Cache: %d hits, %d misses (%.0f%% hit rate)\n",
		stats.Hits, stats.Misses, stats.HitRate()*100)
	return nil
}
