package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nzflyfish/riverscout/internal/store"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the local database",
	}
	cmd.AddCommand(newQueryRegionsCmd())
	cmd.AddCommand(newQueryRiversCmd())
	cmd.AddCommand(newQueryRiverCmd())
	return cmd
}

func newQueryRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List stored regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				regions, err := st.Regions(ctx)
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Slug", "Crawled"})
				for _, r := range regions {
					tw.AppendRow(table.Row{r.ID, r.Name, r.Slug, r.CrawlTimestamp.String})
				}
				tw.Render()
				fmt.Printf("%d regions\n", len(regions))
				return nil
			})
		},
	}
}

func newQueryRiversCmd() *cobra.Command {
	var regionID int64

	cmd := &cobra.Command{
		Use:   "rivers",
		Short: "List stored rivers, optionally by region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				var (
					rivers []store.River
					err    error
				)
				if regionID > 0 {
					rivers, err = st.RiversByRegion(ctx, regionID)
				} else {
					rivers, err = st.Rivers(ctx)
				}
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Region", "Name", "Slug", "Crawled"})
				for _, r := range rivers {
					tw.AppendRow(table.Row{r.ID, r.RegionID, r.Name, r.Slug, r.CrawlTimestamp.String})
				}
				tw.Render()
				fmt.Printf("%d rivers\n", len(rivers))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&regionID, "region-id", 0, "filter by region ID")
	return cmd
}

func newQueryRiverCmd() *cobra.Command {
	var riverID int64

	cmd := &cobra.Command{
		Use:   "river",
		Short: "Show one river with its sections, flies, and regulations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if riverID <= 0 {
				return fmt.Errorf("--river-id is required")
			}
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				return printRiver(ctx, st, riverID)
			})
		},
	}

	cmd.Flags().Int64Var(&riverID, "river-id", 0, "river ID to show")
	return cmd
}

func printRiver(ctx context.Context, st *store.Store, riverID int64) error {
	river, err := st.River(ctx, riverID)
	if err != nil {
		return err
	}
	fmt.Printf("River: %s\n", river.Name)
	fmt.Printf("Canonical URL: %s\n", river.CanonicalURL)
	if river.Description.Valid {
		fmt.Printf("Description: %s\n", river.Description.String)
	}
	if river.CrawlTimestamp.Valid {
		fmt.Printf("Crawled: %s\n", river.CrawlTimestamp.String)
	}

	sections, err := st.SectionsByRiver(ctx, riverID)
	if err != nil {
		return err
	}
	if len(sections) > 0 {
		fmt.Printf("\nSections (%d):\n", len(sections))
		for _, s := range sections {
			fmt.Printf("  - %s\n", s.Name)
		}
	}

	flies, err := st.FliesByRiver(ctx, riverID)
	if err != nil {
		return err
	}
	fmt.Printf("\nRecommended flies (%d):\n", len(flies))
	tw := newTable()
	tw.AppendHeader(table.Row{"Name", "Category", "Size", "Color", "Source text"})
	for _, f := range flies {
		tw.AppendRow(table.Row{
			f.Name, f.Category.String, f.Size.String, f.Color.String, f.RawText,
		})
	}
	tw.Render()

	regs, err := st.RegulationsByRiver(ctx, riverID)
	if err != nil {
		return err
	}
	fmt.Printf("\nRegulations (%d):\n", len(regs))
	tw = newTable()
	tw.AppendHeader(table.Row{"Type", "Value", "Source text"})
	for _, r := range regs {
		tw.AppendRow(table.Row{r.Type, r.Value, r.RawText})
	}
	tw.Render()
	return nil
}

func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	st, err := store.Open(appInstance.Cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}
