package store

// schema is applied on open and is idempotent. Raw-content columns
// (raw_html, raw_text) are write-once: the upsert statements never replace a
// previously-set value.
const schema = `
CREATE TABLE IF NOT EXISTS regions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    slug            TEXT NOT NULL UNIQUE,
    canonical_url   TEXT NOT NULL UNIQUE,
    source_url      TEXT,
    raw_html        TEXT,
    description     TEXT,
    crawl_timestamp TEXT,
    updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rivers (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    region_id       INTEGER NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    slug            TEXT NOT NULL,
    canonical_url   TEXT NOT NULL UNIQUE,
    source_url      TEXT,
    raw_html        TEXT,
    description     TEXT,
    crawl_timestamp TEXT,
    updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (region_id, slug)
);

CREATE TABLE IF NOT EXISTS sections (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    river_id        INTEGER NOT NULL REFERENCES rivers(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    slug            TEXT NOT NULL,
    canonical_url   TEXT,
    raw_html        TEXT,
    description     TEXT,
    crawl_timestamp TEXT,
    updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (river_id, slug)
);

CREATE TABLE IF NOT EXISTS recommended_flies (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    river_id        INTEGER NOT NULL REFERENCES rivers(id) ON DELETE CASCADE,
    section_id      INTEGER REFERENCES sections(id) ON DELETE SET NULL,
    name            TEXT NOT NULL,
    raw_text        TEXT NOT NULL,
    category        TEXT,
    size            TEXT,
    color           TEXT,
    notes           TEXT,
    crawl_timestamp TEXT NOT NULL,
    updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (river_id, name)
);

CREATE TABLE IF NOT EXISTS regulations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    river_id        INTEGER NOT NULL REFERENCES rivers(id) ON DELETE CASCADE,
    section_id      INTEGER REFERENCES sections(id) ON DELETE SET NULL,
    type            TEXT NOT NULL,
    value           TEXT NOT NULL,
    raw_text        TEXT NOT NULL,
    source_section  TEXT,
    crawl_timestamp TEXT NOT NULL,
    updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (river_id, type, raw_text)
);

CREATE TABLE IF NOT EXISTS crawl_metadata (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id       TEXT NOT NULL,
    entity_type      TEXT NOT NULL,
    entity_id        INTEGER NOT NULL,
    raw_content_hash TEXT,
    parsed_hash      TEXT,
    page_version     INTEGER,
    crawl_timestamp  TEXT NOT NULL,
    UNIQUE (session_id, entity_type, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_rivers_region ON rivers(region_id);
CREATE INDEX IF NOT EXISTS idx_sections_river ON sections(river_id);
CREATE INDEX IF NOT EXISTS idx_flies_river ON recommended_flies(river_id);
CREATE INDEX IF NOT EXISTS idx_regulations_river ON regulations(river_id);
CREATE INDEX IF NOT EXISTS idx_metadata_entity ON crawl_metadata(entity_type, entity_id);
`
