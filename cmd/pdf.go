package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nzflyfish/riverscout/internal/pdf"
	"github.com/nzflyfish/riverscout/internal/store"
)

func newPDFCmd() *cobra.Command {
	var (
		riverID  int64
		regionID int64
	)

	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Export stored river data as PDF reports",
		Long: `Render PDF reports from the local database. This works entirely
offline: no pages are fetched. Use --river-id for a single river
report or --region-id for a zip archive covering every river in
the region.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (riverID > 0) == (regionID > 0) {
				return fmt.Errorf("exactly one of --river-id or --region-id is required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				gen := pdf.New(st, appInstance.Cfg.PDF)
				var path string
				if riverID > 0 {
					path, err = gen.RiverReport(ctx, riverID)
				} else {
					path, err = gen.RegionBatch(ctx, regionID)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&riverID, "river-id", 0, "river ID to export")
	cmd.Flags().Int64Var(&regionID, "region-id", 0, "region ID to export as a zip of reports")
	return cmd
}
