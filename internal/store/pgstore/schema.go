package pgstore

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	code     VARCHAR(32) PRIMARY KEY,
	name     VARCHAR(128) NOT NULL,
	category VARCHAR(16) NOT NULL,
	level    INTEGER NOT NULL,
	parent   VARCHAR(32) NOT NULL DEFAULT '',
	nature   VARCHAR(8) NOT NULL CHECK (nature IN ('debit', 'credit'))
);
CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts (parent);

CREATE TABLE IF NOT EXISTS entry_headers (
	id          VARCHAR(36) PRIMARY KEY,
	type        VARCHAR(16) NOT NULL,
	folio       INTEGER NOT NULL,
	date        TIMESTAMPTZ NOT NULL,
	memo        VARCHAR(255) NOT NULL DEFAULT '',
	total       NUMERIC(18,2) NOT NULL,
	status      VARCHAR(16) NOT NULL,
	client_id   VARCHAR(64) NOT NULL DEFAULT '',
	supplier_id VARCHAR(64) NOT NULL DEFAULT '',
	journal     VARCHAR(64) NOT NULL DEFAULT '',
	reversal_of VARCHAR(36) NOT NULL DEFAULT '',
	created_by  VARCHAR(64) NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (type, folio)
);
CREATE INDEX IF NOT EXISTS idx_entry_headers_date ON entry_headers (date);
CREATE INDEX IF NOT EXISTS idx_entry_headers_status ON entry_headers (status);

CREATE TABLE IF NOT EXISTS entry_lines (
	header_id   VARCHAR(36) NOT NULL REFERENCES entry_headers (id),
	seq         INTEGER NOT NULL,
	account     VARCHAR(32) NOT NULL,
	debit       NUMERIC(18,2) NOT NULL CHECK (debit >= 0),
	credit      NUMERIC(18,2) NOT NULL CHECK (credit >= 0),
	client_id   VARCHAR(64) NOT NULL DEFAULT '',
	supplier_id VARCHAR(64) NOT NULL DEFAULT '',
	detail      VARCHAR(255) NOT NULL DEFAULT '',
	reference   VARCHAR(64) NOT NULL DEFAULT '',
	PRIMARY KEY (header_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_entry_lines_account ON entry_lines (account);

CREATE TABLE IF NOT EXISTS period_balances (
	account    VARCHAR(32) NOT NULL,
	period     VARCHAR(7) NOT NULL,
	opening    NUMERIC(18,2) NOT NULL,
	closing    NUMERIC(18,2) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (account, period)
);

CREATE TABLE IF NOT EXISTS activity_log (
	id         BIGSERIAL PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL,
	actor      VARCHAR(64) NOT NULL DEFAULT '',
	action     VARCHAR(255) NOT NULL DEFAULT '',
	table_name VARCHAR(64) NOT NULL DEFAULT '',
	record_id  VARCHAR(64) NOT NULL DEFAULT '',
	origin     VARCHAR(64) NOT NULL DEFAULT ''
);
`
