package store

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	company_id  TEXT NOT NULL,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	normal_side TEXT NOT NULL,
	system      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (company_id, code)
);

CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	company_id   TEXT NOT NULL,
	number       TEXT NOT NULL,
	date         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	total_debit  TEXT NOT NULL,
	total_credit TEXT NOT NULL,
	status       TEXT NOT NULL,
	period       TEXT NOT NULL,
	document_id  TEXT NOT NULL DEFAULT '',
	template_id  TEXT NOT NULL DEFAULT '',
	version      INTEGER NOT NULL DEFAULT 1,
	UNIQUE (company_id, number)
);

CREATE INDEX IF NOT EXISTS idx_transactions_period
	ON transactions (company_id, period, status);

CREATE TABLE IF NOT EXISTS transaction_lines (
	tx_id        TEXT NOT NULL REFERENCES transactions (id) ON DELETE CASCADE,
	line_no      INTEGER NOT NULL,
	account_code TEXT NOT NULL,
	side         TEXT NOT NULL,
	amount       TEXT NOT NULL,
	partner_id   TEXT NOT NULL DEFAULT '',
	partner_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tx_id, line_no)
);

CREATE TABLE IF NOT EXISTS periods (
	company_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	status     TEXT NOT NULL,
	closed_at  TEXT NOT NULL DEFAULT '',
	closed_by  TEXT NOT NULL DEFAULT '',
	locked_at  TEXT NOT NULL DEFAULT '',
	locked_by  TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (company_id, key)
);

CREATE TABLE IF NOT EXISTS counters (
	company_id TEXT NOT NULL,
	prefix     TEXT NOT NULL,
	period     TEXT NOT NULL,
	value      INTEGER NOT NULL,
	PRIMARY KEY (company_id, prefix, period)
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	processed  INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	partner_id TEXT NOT NULL DEFAULT '',
	amount     TEXT NOT NULL DEFAULT '',
	date       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	company_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	rule_codes  TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	ref         TEXT NOT NULL DEFAULT '',
	actor       TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	at          TEXT NOT NULL
);
`
