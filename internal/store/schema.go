package store

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	target TEXT NOT NULL,
	media_url TEXT NOT NULL,
	format_id TEXT NOT NULL DEFAULT '',
	label TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	cost INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_account ON jobs(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, updated_at);

CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	pay_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	credits INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_invoices_account ON invoices(account_id, created_at);
`
