package store

// Schema creates the claims table, its listing indexes and the full-text
// index over title and text. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	kind         TEXT NOT NULL CHECK (kind IN ('url', 'text')),
	url          TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	image        TEXT NOT NULL DEFAULT '',
	site_name    TEXT NOT NULL DEFAULT '',
	tags_json    TEXT NOT NULL DEFAULT '[]' CHECK (json_valid(tags_json)),
	status       TEXT NOT NULL DEFAULT 'unverified'
	             CHECK (status IN ('unverified', 'under_review', 'verified_true', 'misleading', 'false')),
	submitted_by TEXT NOT NULL CHECK (submitted_by <> ''),
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	CHECK ((kind = 'url' AND url <> '' AND text = '') OR (kind = 'text' AND text <> '' AND url = ''))
);

CREATE INDEX IF NOT EXISTS idx_claims_status_created ON claims(status, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at DESC, id DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS claims_fts USING fts5(
	title, text,
	content='claims', content_rowid='seq',
	tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS claims_fts_ai AFTER INSERT ON claims BEGIN
	INSERT INTO claims_fts(rowid, title, text) VALUES (new.seq, new.title, new.text);
END;

CREATE TRIGGER IF NOT EXISTS claims_fts_au AFTER UPDATE OF title, text ON claims BEGIN
	INSERT INTO claims_fts(claims_fts, rowid, title, text) VALUES ('delete', old.seq, old.title, old.text);
	INSERT INTO claims_fts(rowid, title, text) VALUES (new.seq, new.title, new.text);
END;
`
