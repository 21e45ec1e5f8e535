package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the run-history database.
const Schema = `
CREATE TABLE IF NOT EXISTS results (
    uri TEXT PRIMARY KEY,

    protocol TEXT NOT NULL,
    address TEXT NOT NULL,

    ping_ms REAL,
    jitter_ms REAL,
    download_mbps REAL,
    upload_mbps REAL,
    bypass_ok BOOLEAN,

    telegram_ok BOOLEAN,
    instagram_ok BOOLEAN,
    youtube_ok BOOLEAN,

    ip TEXT,
    fragment_mode BOOLEAN,
    custom_sni TEXT,

    country TEXT,
    country_code TEXT,
    city TEXT,
    isp TEXT,

    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_recorded_at ON results(recorded_at);
CREATE INDEX IF NOT EXISTS idx_results_protocol ON results(protocol);
CREATE INDEX IF NOT EXISTS idx_results_country_code ON results(country_code);
`

// InsertSchemaVersion records the schema version, once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the highest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
