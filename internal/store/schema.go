package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    gateway_id           TEXT NOT NULL,
    days                 INTEGER NOT NULL,
    include_logs         INTEGER NOT NULL DEFAULT 0,
    payload              BLOB NOT NULL,
    fetched_at           TEXT NOT NULL,
    PRIMARY KEY (gateway_id, days, include_logs)
);

CREATE TABLE IF NOT EXISTS gateways (
    gateway_id           TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    created_at           TEXT,
    listed_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(fetched_at);
`
