package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Versions are
// sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER NOT NULL,
	total          INTEGER NOT NULL DEFAULT 0,
	drafts_saved   INTEGER NOT NULL DEFAULT 0,
	events_created INTEGER NOT NULL DEFAULT 0,
	conflicts      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	idx               INTEGER NOT NULL,
	email_id          TEXT NOT NULL,
	thread_id         TEXT NOT NULL DEFAULT '',
	sender            TEXT NOT NULL DEFAULT '',
	sender_email      TEXT NOT NULL DEFAULT '',
	subject           TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	urgency           TEXT NOT NULL DEFAULT '',
	reply_needed      INTEGER NOT NULL DEFAULT 0,
	reply_reason      TEXT NOT NULL DEFAULT '',
	draft_id          TEXT NOT NULL DEFAULT '',
	calendar_action   TEXT NOT NULL DEFAULT 'NONE',
	calendar_event_id TEXT NOT NULL DEFAULT '',
	conflict_detected INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE results ADD COLUMN key_points TEXT NOT NULL DEFAULT '[]';
ALTER TABLE results ADD COLUMN calendar_details TEXT NOT NULL DEFAULT '{}';
ALTER TABLE results ADD COLUMN errors TEXT NOT NULL DEFAULT '[]';

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
