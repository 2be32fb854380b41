package schemas

const SQLITE_SCHEMA = `
CREATE TABLE IF NOT EXISTS processed_runs (
    uid TEXT PRIMARY KEY,
    scan_id INTEGER NOT NULL,
    save_directory TEXT NOT NULL,
    entity BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_processed_runs_save_directory
ON processed_runs (save_directory);
`

const POSTGRES_SCHEMA = `
CREATE TABLE IF NOT EXISTS processed_runs (
    uid TEXT PRIMARY KEY,
    scan_id BIGINT NOT NULL,
    save_directory TEXT NOT NULL,
    entity BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_processed_runs_save_directory
ON processed_runs (save_directory);
`
