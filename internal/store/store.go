// Package store persists discovered entities to a local SQLite database.
// Upserts key on canonical URL (slug within parent for sub-entities), and
// raw-content columns are write-once: a re-crawl may refresh timestamps and
// parsed fields but never replaces previously-stored raw source text.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection. All operations are safe for the
// single-threaded scrape pipeline; the connection itself serializes access.
type Store struct {
	db *sqlx.DB
}

// Open connects to (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRegion inserts or updates a region keyed by canonical URL. raw_html
// is only written when not already set.
func (s *Store) UpsertRegion(ctx context.Context, r Region) (int64, error) {
	const q = `
INSERT INTO regions (name, slug, canonical_url, source_url, raw_html, description, crawl_timestamp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(canonical_url) DO UPDATE SET
    name            = excluded.name,
    slug            = excluded.slug,
    raw_html        = COALESCE(regions.raw_html, excluded.raw_html),
    description     = COALESCE(excluded.description, regions.description),
    crawl_timestamp = COALESCE(excluded.crawl_timestamp, regions.crawl_timestamp),
    updated_at      = CURRENT_TIMESTAMP
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		r.Name, r.Slug, r.CanonicalURL, r.SourceURL, r.RawHTML, r.Description, r.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert region %s: %w", r.Slug, err)
	}
	return id, nil
}

// UpsertRiver inserts or updates a river keyed by canonical URL.
func (s *Store) UpsertRiver(ctx context.Context, r River) (int64, error) {
	const q = `
INSERT INTO rivers (region_id, name, slug, canonical_url, source_url, raw_html, description, crawl_timestamp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(canonical_url) DO UPDATE SET
    name            = excluded.name,
    slug            = excluded.slug,
    raw_html        = COALESCE(rivers.raw_html, excluded.raw_html),
    description     = COALESCE(excluded.description, rivers.description),
    crawl_timestamp = COALESCE(excluded.crawl_timestamp, rivers.crawl_timestamp),
    updated_at      = CURRENT_TIMESTAMP
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		r.RegionID, r.Name, r.Slug, r.CanonicalURL, r.SourceURL, r.RawHTML, r.Description, r.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert river %s: %w", r.Slug, err)
	}
	return id, nil
}

// UpsertSection inserts or updates a section keyed by (river, slug).
func (s *Store) UpsertSection(ctx context.Context, sec Section) (int64, error) {
	const q = `
INSERT INTO sections (river_id, name, slug, canonical_url, raw_html, description, crawl_timestamp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(river_id, slug) DO UPDATE SET
    raw_html        = COALESCE(sections.raw_html, excluded.raw_html),
    crawl_timestamp = excluded.crawl_timestamp,
    updated_at      = CURRENT_TIMESTAMP
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		sec.RiverID, sec.Name, sec.Slug, sec.CanonicalURL, sec.RawHTML, sec.Description, sec.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert section %s: %w", sec.Slug, err)
	}
	return id, nil
}

// UpsertFly inserts or updates a fly keyed by (river, name). The verbatim
// raw_text of an existing row is never replaced; only the parsed fields and
// timestamps refresh.
func (s *Store) UpsertFly(ctx context.Context, f Fly) (int64, error) {
	const q = `
INSERT INTO recommended_flies (river_id, section_id, name, raw_text, category, size, color, notes, crawl_timestamp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(river_id, name) DO UPDATE SET
    category        = excluded.category,
    size            = excluded.size,
    color           = excluded.color,
    notes           = excluded.notes,
    crawl_timestamp = excluded.crawl_timestamp,
    updated_at      = CURRENT_TIMESTAMP
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		f.RiverID, f.SectionID, f.Name, f.RawText, f.Category, f.Size, f.Color, f.Notes, f.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert fly %q: %w", f.Name, err)
	}
	return id, nil
}

// UpsertRegulation inserts or updates a regulation keyed by
// (river, type, raw_text).
func (s *Store) UpsertRegulation(ctx context.Context, r Regulation) (int64, error) {
	const q = `
INSERT INTO regulations (river_id, section_id, type, value, raw_text, source_section, crawl_timestamp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(river_id, type, raw_text) DO UPDATE SET
    value           = excluded.value,
    crawl_timestamp = excluded.crawl_timestamp,
    updated_at      = CURRENT_TIMESTAMP
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		r.RiverID, r.SectionID, r.Type, r.Value, r.RawText, r.SourceSection, r.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert regulation: %w", err)
	}
	return id, nil
}

// Region fetches one region by id.
func (s *Store) Region(ctx context.Context, id int64) (Region, error) {
	var r Region
	if err := s.db.GetContext(ctx, &r, `SELECT * FROM regions WHERE id = ?`, id); err != nil {
		return Region{}, fmt.Errorf("get region %d: %w", id, err)
	}
	return r, nil
}

// Regions lists all regions ordered by name.
func (s *Store) Regions(ctx context.Context) ([]Region, error) {
	var out []Region
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM regions ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return out, nil
}

// RegionBySlug fetches one region by slug. Returns sql.ErrNoRows wrapped when
// absent.
func (s *Store) RegionBySlug(ctx context.Context, slug string) (Region, error) {
	var r Region
	if err := s.db.GetContext(ctx, &r, `SELECT * FROM regions WHERE slug = ?`, slug); err != nil {
		return Region{}, fmt.Errorf("get region %s: %w", slug, err)
	}
	return r, nil
}

// RegionIDByURL looks up a region by canonical URL, reporting whether it
// exists.
func (s *Store) RegionIDByURL(ctx context.Context, canonicalURL string) (int64, bool, error) {
	return s.idByURL(ctx, "regions", canonicalURL)
}

// RiverIDByURL looks up a river by canonical URL, reporting whether it
// exists.
func (s *Store) RiverIDByURL(ctx context.Context, canonicalURL string) (int64, bool, error) {
	return s.idByURL(ctx, "rivers", canonicalURL)
}

func (s *Store) idByURL(ctx context.Context, table, canonicalURL string) (int64, bool, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM `+table+` WHERE canonical_url = ?`, canonicalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s by url: %w", table, err)
	}
	return id, true, nil
}

// River fetches one river by id.
func (s *Store) River(ctx context.Context, id int64) (River, error) {
	var r River
	if err := s.db.GetContext(ctx, &r, `SELECT * FROM rivers WHERE id = ?`, id); err != nil {
		return River{}, fmt.Errorf("get river %d: %w", id, err)
	}
	return r, nil
}

// Rivers lists all rivers ordered by name.
func (s *Store) Rivers(ctx context.Context) ([]River, error) {
	var out []River
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM rivers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list rivers: %w", err)
	}
	return out, nil
}

// RiversByRegion lists a region's rivers ordered by name.
func (s *Store) RiversByRegion(ctx context.Context, regionID int64) ([]River, error) {
	var out []River
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM rivers WHERE region_id = ? ORDER BY name`, regionID)
	if err != nil {
		return nil, fmt.Errorf("list rivers for region %d: %w", regionID, err)
	}
	return out, nil
}

// RiversCrawledBefore lists rivers whose detail crawl is older than cutoff
// (or that have never been crawled). Timestamps are RFC3339 UTC, so string
// comparison orders correctly.
func (s *Store) RiversCrawledBefore(ctx context.Context, cutoff string) ([]River, error) {
	var out []River
	err := s.db.SelectContext(ctx, &out, `
SELECT * FROM rivers
WHERE crawl_timestamp IS NULL OR crawl_timestamp < ?
ORDER BY name`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale rivers: %w", err)
	}
	return out, nil
}

// SectionsByRiver lists a river's sections ordered by name.
func (s *Store) SectionsByRiver(ctx context.Context, riverID int64) ([]Section, error) {
	var out []Section
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM sections WHERE river_id = ? ORDER BY name`, riverID)
	if err != nil {
		return nil, fmt.Errorf("list sections for river %d: %w", riverID, err)
	}
	return out, nil
}

// FliesByRiver lists a river's flies ordered by name.
func (s *Store) FliesByRiver(ctx context.Context, riverID int64) ([]Fly, error) {
	var out []Fly
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM recommended_flies WHERE river_id = ? ORDER BY name`, riverID)
	if err != nil {
		return nil, fmt.Errorf("list flies for river %d: %w", riverID, err)
	}
	return out, nil
}

// RegulationsByRiver lists a river's regulations ordered by type.
func (s *Store) RegulationsByRiver(ctx context.Context, riverID int64) ([]Regulation, error) {
	var out []Regulation
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM regulations WHERE river_id = ? ORDER BY type, id`, riverID)
	if err != nil {
		return nil, fmt.Errorf("list regulations for river %d: %w", riverID, err)
	}
	return out, nil
}

// CountRegions returns the total number of stored regions.
func (s *Store) CountRegions(ctx context.Context) (int, error) {
	return s.count(ctx, "regions")
}

// CountRivers returns the total number of stored rivers.
func (s *Store) CountRivers(ctx context.Context) (int, error) {
	return s.count(ctx, "rivers")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// InsertMetadata records content hashes for one entity in one crawl session.
// Re-recording within the same session overwrites.
func (s *Store) InsertMetadata(ctx context.Context, m CrawlMetadata) (int64, error) {
	const q = `
INSERT INTO crawl_metadata (session_id, entity_type, entity_id, raw_content_hash, parsed_hash, page_version, crawl_timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, entity_type, entity_id) DO UPDATE SET
    raw_content_hash = excluded.raw_content_hash,
    parsed_hash      = excluded.parsed_hash,
    crawl_timestamp  = excluded.crawl_timestamp
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		m.SessionID, m.EntityType, m.EntityID, m.RawContentHash, m.ParsedHash, m.PageVersion, m.CrawlTimestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert metadata: %w", err)
	}
	return id, nil
}

// LatestMetadata returns the most recent crawl record for an entity, or
// false when it has never been crawled.
func (s *Store) LatestMetadata(ctx context.Context, entityType string, entityID int64) (CrawlMetadata, bool, error) {
	var m CrawlMetadata
	err := s.db.GetContext(ctx, &m, `
SELECT * FROM crawl_metadata
WHERE entity_type = ? AND entity_id = ?
ORDER BY crawl_timestamp DESC, id DESC LIMIT 1`, entityType, entityID)
	if errors.Is(err, sql.ErrNoRows) {
		return CrawlMetadata{}, false, nil
	}
	if err != nil {
		return CrawlMetadata{}, false, fmt.Errorf("latest metadata %s/%d: %w", entityType, entityID, err)
	}
	return m, true, nil
}

// HasChanged reports whether an entity's raw content hash differs from its
// last recorded crawl. Never-crawled entities count as changed.
func (s *Store) HasChanged(ctx context.Context, entityType string, entityID int64, contentHash string) (bool, error) {
	m, ok, err := s.LatestMetadata(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return m.RawContentHash.String != contentHash, nil
}
