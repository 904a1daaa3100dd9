package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "riverscout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ts(offset time.Duration) sql.NullString {
	return NullString(Timestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)))
}

func TestUpsertRegionKeyedByCanonicalURL(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertRegion(ctx, Region{
		Name:           "Taupo",
		Slug:           "taupo",
		CanonicalURL:   "https://nzfishing.com/taupo/",
		CrawlTimestamp: ts(0),
	})
	require.NoError(t, err)

	id2, err := s.UpsertRegion(ctx, Region{
		Name:           "Taupo Fishery",
		Slug:           "taupo",
		CanonicalURL:   "https://nzfishing.com/taupo/",
		CrawlTimestamp: ts(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	got, err := s.Region(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, "Taupo Fishery", got.Name)
	require.Equal(t, ts(time.Hour), got.CrawlTimestamp)

	n, err := s.CountRegions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRegionRawHTMLIsWriteOnce(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	region := Region{
		Name:           "Otago",
		Slug:           "otago",
		CanonicalURL:   "https://nzfishing.com/otago/",
		RawHTML:        NullString("<html>first snapshot</html>"),
		CrawlTimestamp: ts(0),
	}
	id, err := s.UpsertRegion(ctx, region)
	require.NoError(t, err)

	// A re-crawl with incidentally different raw HTML must not replace the
	// stored snapshot.
	region.RawHTML = NullString("<html>first  snapshot</html>")
	region.CrawlTimestamp = ts(time.Hour)
	_, err = s.UpsertRegion(ctx, region)
	require.NoError(t, err)

	got, err := s.Region(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "<html>first snapshot</html>", got.RawHTML.String)
	require.Equal(t, ts(time.Hour), got.CrawlTimestamp)
}

func TestRegionRawHTMLBackfillsWhenNull(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	region := Region{
		Name:           "Nelson",
		Slug:           "nelson",
		CanonicalURL:   "https://nzfishing.com/nelson/",
		CrawlTimestamp: ts(0),
	}
	id, err := s.UpsertRegion(ctx, region)
	require.NoError(t, err)

	region.RawHTML = NullString("<html>late snapshot</html>")
	_, err = s.UpsertRegion(ctx, region)
	require.NoError(t, err)

	got, err := s.Region(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "<html>late snapshot</html>", got.RawHTML.String)
}

func testRiver(t *testing.T, s *Store) int64 {
	t.Helper()
	ctx := context.Background()
	regionID, err := s.UpsertRegion(ctx, Region{
		Name: "Taupo", Slug: "taupo",
		CanonicalURL:   "https://nzfishing.com/taupo/",
		CrawlTimestamp: ts(0),
	})
	require.NoError(t, err)
	riverID, err := s.UpsertRiver(ctx, River{
		RegionID: regionID, Name: "Tongariro River", Slug: "tongariro-river",
		CanonicalURL:   "https://nzfishing.com/taupo/tongariro-river/",
		CrawlTimestamp: ts(0),
	})
	require.NoError(t, err)
	return riverID
}

func TestUpsertFlyRawTextIsWriteOnce(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	riverID := testRiver(t, s)

	fly := Fly{
		RiverID:        riverID,
		Name:           "Pheasant Tail Nymph #16",
		RawText:        "Pheasant Tail Nymph #16 Brown",
		Category:       NullString("nymph"),
		Size:           NullString("16"),
		CrawlTimestamp: Timestamp(time.Now()),
	}
	id1, err := s.UpsertFly(ctx, fly)
	require.NoError(t, err)

	// Re-crawl: parsed fields may update, raw text may not.
	fly.RawText = "Pheasant  Tail  Nymph #16 Brown"
	fly.Color = NullString("brown")
	id2, err := s.UpsertFly(ctx, fly)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	flies, err := s.FliesByRiver(ctx, riverID)
	require.NoError(t, err)
	require.Len(t, flies, 1)
	require.Equal(t, "Pheasant Tail Nymph #16 Brown", flies[0].RawText)
	require.Equal(t, "brown", flies[0].Color.String)
}

func TestUpsertRegulationDeduplicates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	riverID := testRiver(t, s)

	reg := Regulation{
		RiverID:        riverID,
		Type:           "catch_limit",
		Value:          "3 fish",
		RawText:        "Bag limit: 3 trout per day",
		CrawlTimestamp: Timestamp(time.Now()),
	}
	id1, err := s.UpsertRegulation(ctx, reg)
	require.NoError(t, err)
	id2, err := s.UpsertRegulation(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	regs, err := s.RegulationsByRiver(ctx, riverID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
}

func TestSectionsKeyedBySlugWithinRiver(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	riverID := testRiver(t, s)

	id1, err := s.UpsertSection(ctx, Section{
		RiverID: riverID, Name: "Upper", Slug: "upper",
		CrawlTimestamp: ts(0),
	})
	require.NoError(t, err)
	id2, err := s.UpsertSection(ctx, Section{
		RiverID: riverID, Name: "Upper", Slug: "upper",
		CrawlTimestamp: ts(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	sections, err := s.SectionsByRiver(ctx, riverID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, ts(time.Hour), sections[0].CrawlTimestamp)
}

func TestRiversByRegion(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	regionID, err := s.UpsertRegion(ctx, Region{
		Name: "Taupo", Slug: "taupo",
		CanonicalURL:   "https://nzfishing.com/taupo/",
		CrawlTimestamp: ts(0),
	})
	require.NoError(t, err)

	for _, name := range []string{"Waitahanui", "Hinemaiaia", "Tongariro"} {
		_, err := s.UpsertRiver(ctx, River{
			RegionID: regionID, Name: name, Slug: name,
			CanonicalURL:   "https://nzfishing.com/taupo/" + name + "/",
			CrawlTimestamp: ts(0),
		})
		require.NoError(t, err)
	}

	rivers, err := s.RiversByRegion(ctx, regionID)
	require.NoError(t, err)
	require.Len(t, rivers, 3)
	require.Equal(t, "Hinemaiaia", rivers[0].Name)

	n, err := s.CountRivers(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestHasChanged(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	riverID := testRiver(t, s)

	// Never crawled: counts as changed.
	changed, err := s.HasChanged(ctx, "river", riverID, "hash-a")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = s.InsertMetadata(ctx, CrawlMetadata{
		SessionID:      "session-1",
		EntityType:     "river",
		EntityID:       riverID,
		RawContentHash: NullString("hash-a"),
		CrawlTimestamp: Timestamp(time.Now()),
	})
	require.NoError(t, err)

	changed, err = s.HasChanged(ctx, "river", riverID, "hash-a")
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = s.HasChanged(ctx, "river", riverID, "hash-b")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestLatestMetadataAbsent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, ok, err := s.LatestMetadata(context.Background(), "region", 99)
	require.NoError(t, err)
	require.False(t, ok)
}
