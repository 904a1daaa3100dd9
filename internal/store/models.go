package store

import (
	"database/sql"
	"time"
)

// Region is a stored fishing region.
type Region struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Slug           string         `db:"slug"`
	CanonicalURL   string         `db:"canonical_url"`
	SourceURL      sql.NullString `db:"source_url"`
	RawHTML        sql.NullString `db:"raw_html"`
	Description    sql.NullString `db:"description"`
	CrawlTimestamp sql.NullString `db:"crawl_timestamp"`
	UpdatedAt      string         `db:"updated_at"`
}

// River is a stored river, owned by a region.
type River struct {
	ID             int64          `db:"id"`
	RegionID       int64          `db:"region_id"`
	Name           string         `db:"name"`
	Slug           string         `db:"slug"`
	CanonicalURL   string         `db:"canonical_url"`
	SourceURL      sql.NullString `db:"source_url"`
	RawHTML        sql.NullString `db:"raw_html"`
	Description    sql.NullString `db:"description"`
	CrawlTimestamp sql.NullString `db:"crawl_timestamp"`
	UpdatedAt      string         `db:"updated_at"`
}

// Section is a stored sub-reach of a river.
type Section struct {
	ID             int64          `db:"id"`
	RiverID        int64          `db:"river_id"`
	Name           string         `db:"name"`
	Slug           string         `db:"slug"`
	CanonicalURL   sql.NullString `db:"canonical_url"`
	RawHTML        sql.NullString `db:"raw_html"`
	Description    sql.NullString `db:"description"`
	CrawlTimestamp sql.NullString `db:"crawl_timestamp"`
	UpdatedAt      string         `db:"updated_at"`
}

// Fly is a stored fly recommendation. RawText is the verbatim source excerpt
// the parsed fields were derived from.
type Fly struct {
	ID             int64          `db:"id"`
	RiverID        int64          `db:"river_id"`
	SectionID      sql.NullInt64  `db:"section_id"`
	Name           string         `db:"name"`
	RawText        string         `db:"raw_text"`
	Category       sql.NullString `db:"category"`
	Size           sql.NullString `db:"size"`
	Color          sql.NullString `db:"color"`
	Notes          sql.NullString `db:"notes"`
	CrawlTimestamp string         `db:"crawl_timestamp"`
	UpdatedAt      string         `db:"updated_at"`
}

// Regulation is a stored, classified regulation line.
type Regulation struct {
	ID             int64          `db:"id"`
	RiverID        int64          `db:"river_id"`
	SectionID      sql.NullInt64  `db:"section_id"`
	Type           string         `db:"type"`
	Value          string         `db:"value"`
	RawText        string         `db:"raw_text"`
	SourceSection  sql.NullString `db:"source_section"`
	CrawlTimestamp string         `db:"crawl_timestamp"`
	UpdatedAt      string         `db:"updated_at"`
}

// CrawlMetadata records content/parse hashes per entity per crawl session,
// for change detection only.
type CrawlMetadata struct {
	ID             int64          `db:"id"`
	SessionID      string         `db:"session_id"`
	EntityType     string         `db:"entity_type"`
	EntityID       int64          `db:"entity_id"`
	RawContentHash sql.NullString `db:"raw_content_hash"`
	ParsedHash     sql.NullString `db:"parsed_hash"`
	PageVersion    sql.NullInt64  `db:"page_version"`
	CrawlTimestamp string         `db:"crawl_timestamp"`
}

// Timestamp formats a time the way the store keeps it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NullString wraps a non-empty string; empty means NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullStringPtr wraps an optional string; nil means NULL.
func NullStringPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
