package index

// Schema contains the SQL statements to create the index schema. The index
// holds a filterable projection of each record plus its full canonical
// JSON, so reads never touch the log file.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    decision_id   TEXT NOT NULL UNIQUE,
    decision_type TEXT NOT NULL,
    claim_id      TEXT,
    doc_id        TEXT,
    ts            TEXT NOT NULL,
    record        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_type  ON decisions(decision_type);
CREATE INDEX IF NOT EXISTS idx_decisions_claim ON decisions(claim_id);
CREATE INDEX IF NOT EXISTS idx_decisions_doc   ON decisions(doc_id);
CREATE INDEX IF NOT EXISTS idx_decisions_ts    ON decisions(ts);
`

// insertDecision inserts one decision projection. OR REPLACE keeps a
// startup rebuild racing a concurrent append idempotent on decision_id.
const insertDecision = `
INSERT OR REPLACE INTO decisions (decision_id, decision_type, claim_id, doc_id, ts, record)
VALUES (?, ?, ?, ?, ?, ?)
`
