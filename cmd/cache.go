package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nzflyfish/riverscout/internal/clock/system"
	"github.com/nzflyfish/riverscout/internal/fetch"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the page cache",
	}
	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached page counts and size on disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			stats := cache.Stats()
			fmt.Printf("Entries:     %d\n", stats.Entries)
			fmt.Printf("Size:        %.1f KB\n", float64(stats.BytesCached)/1024)
			fmt.Printf("Hits:        %d\n", stats.Hits)
			fmt.Printf("Misses:      %d\n", stats.Misses)
			fmt.Printf("Hit rate:    %.0f%%\n", stats.HitRate()*100)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			removed, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached pages\n", removed)
			return nil
		},
	}
}

func openCache(cmd *cobra.Command) (*fetch.Cache, error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	cfg := appInstance.Cfg
	return fetch.NewCache(cfg.Cache.Dir, cfg.CacheTTL(), system.New())
}
